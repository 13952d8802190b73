package api

import (
	"github.com/labstack/echo/v4"

	"BandView/internal/domain/models"
	domrepo "BandView/internal/domain/repository"
	xhttp "BandView/pkg/http"
	xlogger "BandView/pkg/logger"
)

// SettingsHandler reads and commits indicator settings.
type SettingsHandler struct {
	logger   *xlogger.Logger
	store    domrepo.SettingsStore
	defaults models.Settings
}

// NewSettingsHandler creates the handler. Reset commits defaults.
func NewSettingsHandler(logger *xlogger.Logger, store domrepo.SettingsStore, defaults models.Settings) *SettingsHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &SettingsHandler{logger: logger, store: store, defaults: defaults}
}

func (h *SettingsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/settings")
	g.GET("", h.Get)
	g.PUT("", h.Put)
	g.POST("/reset", h.Reset)
}

func (h *SettingsHandler) Get(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.store.Current())
}

func (h *SettingsHandler) Put(c echo.Context) error {
	req := &models.SettingsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	next, err := req.Settings()
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	prev := h.store.Commit(next)
	h.logger.Info("settings committed",
		xlogger.String("previous", prev.Inputs.String()),
		xlogger.String("current", next.Inputs.String()),
	)
	return xhttp.SuccessResponse(c, next)
}

func (h *SettingsHandler) Reset(c echo.Context) error {
	h.store.Commit(h.defaults)
	h.logger.Info("settings reset", xlogger.String("current", h.defaults.Inputs.String()))
	return xhttp.SuccessResponse(c, h.defaults)
}
