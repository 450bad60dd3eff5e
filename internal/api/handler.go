package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"AShareSentinel/internal/agent"
	"AShareSentinel/internal/backtest"
	"AShareSentinel/internal/model"
	"AShareSentinel/internal/store"
)

const dateLayout = "2006-01-02"

// Handler serves the research endpoints. Backtest may be nil.
type Handler struct {
	Agent    *agent.Agent
	Backtest *backtest.Engine
	// Symbols supplies the watchlist when a run request names none.
	Symbols func() ([]string, error)
	Equity  float64
}

type runRequest struct {
	Symbols []string `json:"symbols" validate:"omitempty,dive,required"`
	Equity  float64  `json:"equity" validate:"gte=0"`
}

type backtestRequest struct {
	Symbols   []string `json:"symbols" validate:"required,min=1,dive,required"`
	Start     string   `json:"start" validate:"required,datetime=2006-01-02"`
	End       string   `json:"end" validate:"required,datetime=2006-01-02"`
	Benchmark string   `json:"benchmark" default:"sh000300"`
}

// RegisterRoutes mounts the API under /api/v1.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/signals", h.listSignals)
	g.GET("/signals/:id", h.getSignal)
	g.GET("/risk", h.getRisk)
	g.GET("/bars/:symbol", h.listBars)
	g.POST("/run", h.run)
	if h.Backtest != nil {
		g.POST("/backtest", h.backtest)
	}
}

func (h *Handler) listSignals(c echo.Context) error {
	day := h.Agent.Today()
	if raw := c.QueryParam("date"); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, h.Agent.Location())
		if err != nil {
			return errorResponse(c, http.StatusBadRequest, "ERR_DATE", "date must be YYYY-MM-DD")
		}
		day = parsed
	}
	signals, err := h.Agent.Store().SignalsByDate(c.Request().Context(), day)
	if err != nil {
		return h.internalError(c, err)
	}
	if signals == nil {
		signals = []model.TradeSignal{}
	}
	return listResponse(c, signals, len(signals))
}

func (h *Handler) getSignal(c echo.Context) error {
	sig, err := h.Agent.Store().SignalByID(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return errorResponse(c, http.StatusNotFound, "ERR_NOT_FOUND", "signal not found")
	}
	if err != nil {
		return h.internalError(c, err)
	}
	return dataResponse(c, http.StatusOK, sig)
}

func (h *Handler) getRisk(c echo.Context) error {
	if res, ok := h.Agent.LastResult(); ok {
		return dataResponse(c, http.StatusOK, res.RiskState)
	}
	rs, err := h.Agent.Store().LatestRiskState(c.Request().Context())
	if err != nil {
		return h.internalError(c, err)
	}
	if rs == nil {
		return errorResponse(c, http.StatusNotFound, "ERR_NOT_FOUND", "no risk state recorded")
	}
	return dataResponse(c, http.StatusOK, rs)
}

func (h *Handler) listBars(c echo.Context) error {
	loc := h.Agent.Location()
	end := h.Agent.Today()
	start := end.AddDate(0, 0, -30)
	if raw := c.QueryParam("start"); raw != "" {
		t, err := time.ParseInLocation(dateLayout, raw, loc)
		if err != nil {
			return errorResponse(c, http.StatusBadRequest, "ERR_DATE", "start must be YYYY-MM-DD")
		}
		start = t
	}
	if raw := c.QueryParam("end"); raw != "" {
		t, err := time.ParseInLocation(dateLayout, raw, loc)
		if err != nil {
			return errorResponse(c, http.StatusBadRequest, "ERR_DATE", "end must be YYYY-MM-DD")
		}
		end = t
	}
	bars, err := h.Agent.Store().BarsBetween(c.Request().Context(), c.Param("symbol"), start, end.AddDate(0, 0, 1).Add(-time.Nanosecond))
	if err != nil {
		return h.internalError(c, err)
	}
	if bars == nil {
		bars = []model.MarketBar{}
	}
	return listResponse(c, bars, len(bars))
}

func (h *Handler) run(c echo.Context) error {
	req := &runRequest{}
	if errs := readAndValidate(c, req); errs != nil {
		return dataResponse(c, http.StatusBadRequest, errs)
	}

	symbols := req.Symbols
	if len(symbols) == 0 && h.Symbols != nil {
		loaded, err := h.Symbols()
		if err != nil {
			return h.internalError(c, err)
		}
		symbols = loaded
	}
	equity := req.Equity
	if equity == 0 {
		equity = h.Equity
	}

	res, err := h.Agent.RunOnce(c.Request().Context(), symbols, equity)
	switch {
	case errors.Is(err, agent.ErrNoSymbols), errors.Is(err, agent.ErrInvalidEquity):
		return errorResponse(c, http.StatusBadRequest, "ERR_INVALID_RUN", err.Error())
	case errors.Is(err, agent.ErrRunInProgress):
		return errorResponse(c, http.StatusConflict, "ERR_BUSY", err.Error())
	case err != nil:
		return h.internalError(c, err)
	}
	return dataResponse(c, http.StatusOK, res)
}

func (h *Handler) backtest(c echo.Context) error {
	req := &backtestRequest{}
	if errs := readAndValidate(c, req); errs != nil {
		return dataResponse(c, http.StatusBadRequest, errs)
	}
	loc := h.Agent.Location()
	start, _ := time.ParseInLocation(dateLayout, req.Start, loc)
	end, _ := time.ParseInLocation(dateLayout, req.End, loc)
	if end.Before(start) {
		return errorResponse(c, http.StatusBadRequest, "ERR_DATE", "end must not be before start")
	}

	res, err := h.Backtest.Run(c.Request().Context(), req.Symbols, start, end, req.Benchmark)
	if errors.Is(err, backtest.ErrNoSeries) {
		return errorResponse(c, http.StatusUnprocessableEntity, "ERR_NO_DATA", err.Error())
	}
	if err != nil {
		return h.internalError(c, err)
	}
	return dataResponse(c, http.StatusOK, res)
}

func (h *Handler) internalError(c echo.Context, err error) error {
	log.Error().Err(err).Str("path", c.Path()).Msg("api request failed")
	return errorResponse(c, http.StatusInternalServerError, "ERR_INTERNAL", "Something went wrong")
}
