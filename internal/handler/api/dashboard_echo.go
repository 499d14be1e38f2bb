package api

import (
	"errors"
	"net/http"

	"SignalEngine/internal/domain/models"
	"SignalEngine/internal/usecase"
	xhttp "SignalEngine/pkg/http"
	xlogger "SignalEngine/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DashboardEchoHandler serves the dashboard read API and instrument
// management over Echo.
type DashboardEchoHandler struct {
	logger *xlogger.Logger
	dash   *usecase.Dashboard
	feed   *LiveFeed
}

func NewDashboardEchoHandler(logger *xlogger.Logger, dash *usecase.Dashboard, feed *LiveFeed) *DashboardEchoHandler {
	return &DashboardEchoHandler{logger: logger, dash: dash, feed: feed}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/predictions", h.Predictions)
	g.GET("/results", h.Results)
	g.GET("/performance", h.Performance)
	g.GET("/correlations", h.Correlations)
	g.GET("/accuracy", h.Accuracy)
	g.GET("/instruments", h.Instruments)
	g.POST("/instruments", h.AddInstrument)
	if h.feed != nil {
		g.GET("/live", h.feed.Serve)
	}
	e.GET("/health", h.Health)
}

func (h *DashboardEchoHandler) Predictions(c echo.Context) error {
	req := &models.PredictionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.dash.Predictions(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("predictions query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardEchoHandler) Results(c echo.Context) error {
	req := &models.ResultsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.dash.Results(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("results query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardEchoHandler) Performance(c echo.Context) error {
	req := &models.PerformanceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.dash.Performance(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("performance query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardEchoHandler) Correlations(c echo.Context) error {
	req := &models.CorrelationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.dash.Correlations(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("correlations query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardEchoHandler) Accuracy(c echo.Context) error {
	res, err := h.dash.Accuracy(c.Request().Context())
	if err != nil {
		h.logger.Error("accuracy query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardEchoHandler) Instruments(c echo.Context) error {
	res, err := h.dash.Instruments(c.Request().Context())
	if err != nil {
		h.logger.Error("instruments query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardEchoHandler) AddInstrument(c echo.Context) error {
	req := &models.AddInstrumentRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	inst, err := h.dash.AddInstrument(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return xhttp.DataResponse(c, http.StatusConflict, "instrument already exists")
		}
		h.logger.Error("add instrument error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, inst)
}

func (h *DashboardEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}
