package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"BandView/internal/domain/models"
	domrepo "BandView/internal/domain/repository"
	"BandView/internal/services/bollinger"
	"BandView/internal/usecase"
	xhttp "BandView/pkg/http"
	xlogger "BandView/pkg/logger"
	"BandView/pkg/util"
)

// ChartHandler serves candles, the price header and band data.
type ChartHandler struct {
	logger  *xlogger.Logger
	chart   *usecase.ChartUseCase
	bands   *usecase.BandsUseCase
	limiter echo.MiddlewareFunc
}

func NewChartHandler(logger *xlogger.Logger, chart *usecase.ChartUseCase, bands *usecase.BandsUseCase) *ChartHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &ChartHandler{logger: logger, chart: chart, bands: bands}
}

// SetRateLimit guards the computing routes with mw.
func (h *ChartHandler) SetRateLimit(mw echo.MiddlewareFunc) { h.limiter = mw }

func (h *ChartHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/sources", h.Sources)
	g.GET("/ohlcv", h.Candles)
	g.GET("/quote", h.Quote)

	var mws []echo.MiddlewareFunc
	if h.limiter != nil {
		mws = append(mws, h.limiter)
	}
	g.GET("/bollinger", h.Bollinger, mws...)
	g.GET("/overlay", h.Overlay, mws...)
}

func (h *ChartHandler) Sources(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{"sources": bollinger.Sources()})
}

func (h *ChartHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	var from, to time.Time
	if req.From != "" {
		t, ok := util.ParseTime(req.From)
		if !ok {
			return badRequest(c, "from", "from must be RFC3339 or a unix timestamp")
		}
		from = t
	}
	if req.To != "" {
		t, ok := util.ParseTime(req.To)
		if !ok {
			return badRequest(c, "to", "to must be RFC3339 or a unix timestamp")
		}
		to = t
	}

	res, err := h.chart.Candles(c.Request().Context(), usecase.CandlesParams{
		Symbol:    req.Symbol,
		Timeframe: domrepo.NormalizeTimeframe(req.TF),
		From:      from,
		To:        to,
		Limit:     req.Limit,
	})
	if err != nil {
		return h.fail(c, "candles", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ChartHandler) Quote(c echo.Context) error {
	req := &models.SeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.chart.Quote(c.Request().Context(), req.Symbol, domrepo.NormalizeTimeframe(req.TF))
	if err != nil {
		return h.fail(c, "quote", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
	return xhttp.SuccessResponse(c, res)
}

func (h *ChartHandler) Bollinger(c echo.Context) error {
	p, verr := bandsParams(c)
	if verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.bands.Compute(c.Request().Context(), p)
	if err != nil {
		return h.fail(c, "bollinger", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ChartHandler) Overlay(c echo.Context) error {
	p, verr := bandsParams(c)
	if verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.chart.Overlay(c.Request().Context(), p)
	if err != nil {
		return h.fail(c, "overlay", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ChartHandler) fail(c echo.Context, op string, err error) error {
	mapped := toAppError(err)
	if isServerError(mapped) {
		h.logger.Error(op+" usecase error", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, mapped)
}
