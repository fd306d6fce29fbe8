package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Rectifex/internal/domain/models"
	domrepo "Rectifex/internal/domain/repository"
	applogger "Rectifex/pkg/logger"
)

// UniverseSpec names a universe and how to bound and refresh it.
type UniverseSpec struct {
	Name       string
	MaxTickers int
	Refresh    time.Duration
}

// Universe loads ticker universes from their authoritative source, keeping a
// persisted copy that satisfies loads inside the refresh window. The custom
// universe is user-maintained and never refreshed over the network.
type Universe struct {
	directory domrepo.SymbolDirectory
	store     domrepo.UniverseStore
	log       *applogger.Logger
	now       func() time.Time
}

func NewUniverse(directory domrepo.SymbolDirectory, store domrepo.UniverseStore, log *applogger.Logger) *Universe {
	return &Universe{
		directory: directory,
		store:     store,
		log:       log,
		now:       time.Now,
	}
}

// Load returns the universe's symbols, at most spec.MaxTickers of them.
// A stale persisted copy is served, with a warning, when the refresh fails.
func (u *Universe) Load(ctx context.Context, spec UniverseSpec) ([]string, error) {
	if spec.Refresh <= 0 {
		spec.Refresh = 7 * 24 * time.Hour
	}

	cached, err := u.store.Load(spec.Name)
	if err != nil && !errors.Is(err, domrepo.ErrNotFound) {
		return nil, fmt.Errorf("load universe %s: %w", spec.Name, err)
	}

	if spec.Name == "custom" {
		if cached == nil {
			return nil, fmt.Errorf("universe custom: %w", domrepo.ErrUniverseUnavailable)
		}
		return cached.Truncated(spec.MaxTickers), nil
	}

	if cached.Fresh(spec.Refresh, u.now()) {
		return cached.Truncated(spec.MaxTickers), nil
	}

	symbols, fetchErr := u.directory.List(ctx, spec.Name)
	if fetchErr != nil {
		if errors.Is(fetchErr, domrepo.ErrUnknownUniverse) {
			return nil, fetchErr
		}
		if cached != nil {
			u.log.Warn("universe refresh failed, serving stale copy",
				applogger.String("universe", spec.Name),
				applogger.Duration("age", u.now().Sub(cached.FetchedAt)),
				applogger.Error(fetchErr))
			return cached.Truncated(spec.MaxTickers), nil
		}
		return nil, fmt.Errorf("universe %s: %w: %v", spec.Name, domrepo.ErrUniverseUnavailable, fetchErr)
	}

	list := &models.UniverseList{
		Name:      spec.Name,
		Symbols:   symbols,
		FetchedAt: u.now(),
	}
	if err := u.store.Save(list); err != nil {
		u.log.Warn("universe persist failed",
			applogger.String("universe", spec.Name),
			applogger.Error(err))
	}

	return list.Truncated(spec.MaxTickers), nil
}
