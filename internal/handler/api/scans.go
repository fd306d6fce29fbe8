package api

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	domrepo "Rectifex/internal/domain/repository"
	"Rectifex/internal/scans"
	"Rectifex/internal/usecase"
	xhttp "Rectifex/pkg/http"
	applogger "Rectifex/pkg/logger"
)

// ScansHandler exposes the screener over a small JSON API. The streamed
// channel stays the primary interface; these endpoints run bounded ad-hoc
// scans and answer metadata queries.
type ScansHandler struct {
	logger   *applogger.Logger
	engine   *usecase.ScanEngine
	universe *usecase.Universe
	cache    domrepo.PriceCache

	universeRefresh time.Duration
	scanTimeout     time.Duration
}

func NewScansHandler(logger *applogger.Logger, engine *usecase.ScanEngine, universe *usecase.Universe, cache domrepo.PriceCache, universeRefresh time.Duration) *ScansHandler {
	return &ScansHandler{
		logger:          logger,
		engine:          engine,
		universe:        universe,
		cache:           cache,
		universeRefresh: universeRefresh,
		scanTimeout:     5 * time.Minute,
	}
}

func (h *ScansHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/strategies", h.Strategies)
	g.GET("/universes/:name", h.Universe)
	g.POST("/scan", h.Scan)
	g.POST("/cache/clear", h.ClearCache)
}

type strategyInfo struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Params      map[string]float64 `json:"default_params"`
}

// Strategies lists the registered scan scenarios.
func (h *ScansHandler) Strategies(c echo.Context) error {
	all := scans.List()
	out := make([]strategyInfo, 0, len(all))
	for _, s := range all {
		out = append(out, strategyInfo{
			ID:          s.ID(),
			Name:        s.Name(),
			Description: s.Description(),
			Params:      s.DefaultParams(),
		})
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}

type universeRequest struct {
	Name string `param:"name" validate:"required"`
	Max  int    `query:"max" default:"100" validate:"gte=0,lte=10000"`
}

type universeResponse struct {
	Name    string   `json:"name"`
	Count   int      `json:"count"`
	Symbols []string `json:"symbols"`
}

// Universe returns a bounded preview of a universe's membership.
func (h *ScansHandler) Universe(c echo.Context) error {
	req := &universeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	symbols, err := h.universe.Load(c.Request().Context(), usecase.UniverseSpec{
		Name:       req.Name,
		MaxTickers: req.Max,
		Refresh:    h.universeRefresh,
	})
	if err != nil {
		if errors.Is(err, domrepo.ErrUnknownUniverse) {
			return xhttp.NotFoundResponse(c, err.Error())
		}
		if errors.Is(err, domrepo.ErrUniverseUnavailable) {
			return xhttp.AppErrorResponse(c, xhttp.UnavailableError(err.Error()))
		}
		h.logger.Error("universe load failed", applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	return xhttp.SuccessResponse(c, universeResponse{
		Name:    req.Name,
		Count:   len(symbols),
		Symbols: symbols,
	})
}

type scanRequest struct {
	Strategy string             `json:"strategy" validate:"required"`
	Universe string             `json:"universe"`
	Symbols  []string           `json:"symbols" validate:"max=500"`
	Period   string             `json:"period" default:"1y"`
	Profile  string             `json:"profile"`
	Params   map[string]float64 `json:"params"`
	Workers  int                `json:"workers" default:"4" validate:"gte=1,lte=32"`
	Max      int                `json:"max" default:"100" validate:"gte=1,lte=500"`
}

type scanResponse struct {
	Results []scanEventPayload `json:"results"`
	Summary interface{}        `json:"summary"`
}

type scanEventPayload struct {
	Symbol  string      `json:"symbol"`
	State   string      `json:"state"`
	Reason  string      `json:"reason,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Signals interface{} `json:"signals,omitempty"`
}

// Scan runs a bounded synchronous scan and returns the collected events.
// Either an explicit symbol list or a universe name must be given.
func (h *ScansHandler) Scan(c echo.Context) error {
	req := &scanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	symbols := req.Symbols
	if len(symbols) == 0 {
		if req.Universe == "" {
			return xhttp.BadRequestResponse(c, "either symbols or universe is required")
		}
		var err error
		symbols, err = h.universe.Load(c.Request().Context(), usecase.UniverseSpec{
			Name:       req.Universe,
			MaxTickers: req.Max,
			Refresh:    h.universeRefresh,
		})
		if err != nil {
			if errors.Is(err, domrepo.ErrUnknownUniverse) {
				return xhttp.NotFoundResponse(c, err.Error())
			}
			h.logger.Error("universe load failed", applogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
	}
	if len(symbols) > req.Max {
		symbols = symbols[:req.Max]
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.scanTimeout)
	defer cancel()

	events, err := h.engine.Run(ctx, usecase.ScanOptions{
		Strategy: req.Strategy,
		Symbols:  symbols,
		Period:   req.Period,
		Params:   req.Params,
		Profile:  req.Profile,
		Workers:  req.Workers,
	})
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}

	resp := scanResponse{}
	for ev := range events {
		if ev.Summary != nil {
			resp.Summary = ev.Summary
			continue
		}
		payload := scanEventPayload{
			Symbol: ev.Symbol,
			State:  string(ev.State),
			Reason: ev.Reason,
		}
		if ev.Result != nil {
			payload.Result = ev.Result
		}
		if len(ev.Signals) > 0 {
			payload.Signals = ev.Signals
		}
		resp.Results = append(resp.Results, payload)
	}

	return xhttp.SuccessResponse(c, resp)
}

type clearCacheRequest struct {
	Symbol    string `json:"symbol"`
	OlderThan string `json:"older_than"` // RFC3339, optional
}

// ClearCache drops cached price series by symbol and/or age.
func (h *ScansHandler) ClearCache(c echo.Context) error {
	req := &clearCacheRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	var cutoff time.Time
	if req.OlderThan != "" {
		ts, err := time.Parse(time.RFC3339, req.OlderThan)
		if err != nil {
			return xhttp.BadRequestResponse(c, "older_than must be RFC3339")
		}
		cutoff = ts
	}

	removed, err := h.cache.Clear(req.Symbol, cutoff)
	if err != nil {
		h.logger.Error("cache clear failed", applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]int{"removed": removed})
}
