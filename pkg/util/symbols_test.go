package util

import (
	"reflect"
	"testing"
)

func TestSanitizeSymbol(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"aapl", "AAPL"},
		{"BRK-B", "BRK-B"},
		{"brk/b", "BRK-B"},
		{"", ""},
	}
	for _, c := range cases {
		if got := SanitizeSymbol(c.in); got != c.want {
			t.Errorf("SanitizeSymbol(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeSymbols(t *testing.T) {
	in := []string{" aapl ", "MSFT", "aapl", "", "msft", "GOOG"}
	want := []string{"AAPL", "MSFT", "GOOG"}
	if got := NormalizeSymbols(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeSymbols(%v) = %v, want %v", in, got, want)
	}
}

func TestNormalizeSymbolsEmpty(t *testing.T) {
	if got := NormalizeSymbols(nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestCleanListedSymbols(t *testing.T) {
	in := []string{"ZTEST", "BRK.B", "AAPL", "SPY^A", "GLD=X", "aapl", " ", "C$D"}
	want := []string{"AAPL", "BRK-B", "ZTEST"}
	if got := CleanListedSymbols(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("CleanListedSymbols(%v) = %v, want %v", in, got, want)
	}
}
