package api

import (
	"errors"

	"github.com/labstack/echo/v4"

	models "EquityLens/internal/domain/models"
	"EquityLens/internal/service/retry"
	"EquityLens/internal/usecase"
	xhttp "EquityLens/pkg/http"
	xlogger "EquityLens/pkg/logger"
)

// DashboardEchoHandler exposes the aggregation engine over HTTP.
type DashboardEchoHandler struct {
	logger *xlogger.Logger
	agg    *usecase.Aggregator
}

func NewDashboardEchoHandler(logger *xlogger.Logger, agg *usecase.Aggregator) *DashboardEchoHandler {
	return &DashboardEchoHandler{logger: logger, agg: agg}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/dashboard/:symbol", h.Dashboard)
	g.GET("/search", h.Search)
	g.GET("/economic", h.Economic)
	g.POST("/refresh/:symbol", h.Refresh)
}

func (h *DashboardEchoHandler) Dashboard(c echo.Context) error {
	req := &models.DashboardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	bundle, err := h.agg.Dashboard(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("dashboard usecase error",
			xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, pipelineError(err))
	}
	return xhttp.SuccessResponse(c, bundle)
}

func (h *DashboardEchoHandler) Search(c echo.Context) error {
	req := &models.SearchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	results, err := h.agg.Search(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("search usecase error",
			xlogger.String("query", req.Query), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, pipelineError(err))
	}
	return xhttp.ListResponse(c, results, int64(len(results)))
}

func (h *DashboardEchoHandler) Economic(c echo.Context) error {
	req := &models.EconomicSnapshotRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	snap, err := h.agg.Economic(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("economic usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, pipelineError(err))
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *DashboardEchoHandler) Refresh(c echo.Context) error {
	req := &models.RefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	bundle, err := h.agg.Refresh(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("refresh usecase error",
			xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, pipelineError(err))
	}
	return xhttp.SuccessResponse(c, bundle)
}

// pipelineError maps aggregation failures onto HTTP statuses. Unknown
// symbols are the caller's mistake; everything else is an upstream problem.
func pipelineError(err error) error {
	switch {
	case errors.Is(err, usecase.ErrUnknownSymbol):
		return xhttp.NotFoundError("unknown symbol").WithError(err)
	case errors.Is(err, retry.ErrRateLimitExceeded):
		return xhttp.TooManyRequestsError("provider rate limit exhausted").WithError(err)
	case errors.Is(err, usecase.ErrNoData), errors.Is(err, retry.ErrProviderUnavailable):
		return xhttp.BadGatewayError("no provider data available").WithError(err)
	default:
		return err
	}
}
