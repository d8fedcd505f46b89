package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"stockprob/internal/domain/models"
	xhttp "stockprob/pkg/http"
	xlogger "stockprob/pkg/logger"
)

// StockQuerier is the query surface the handlers need.
type StockQuerier interface {
	FilteredStocks(ctx context.Context) ([]models.Instrument, error)
	StockInfo(ctx context.Context, code string) (models.StockInfo, error)
	StockProbability(ctx context.Context, code string, period models.Period) (models.ProbabilityView, error)
	AllStocksProbability(ctx context.Context, period models.Period) (map[string]models.StockProbabilities, error)
	ProbabilityByPct(ctx context.Context, code string, pct float64) (models.PctProbability, error)
}

// StocksEchoHandler serves /api/stocks.
type StocksEchoHandler struct {
	logger *xlogger.Logger
	svc    StockQuerier
}

func NewStocksEchoHandler(logger *xlogger.Logger, svc StockQuerier) *StocksEchoHandler {
	return &StocksEchoHandler{logger: logger, svc: svc}
}

func (h *StocksEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)

	g := e.Group("/api/stocks")
	g.GET("/list", h.List)
	g.GET("/all/probability", h.AllProbability)
	g.GET("/:code", h.Info)
	g.GET("/:code/probability", h.Probability)
	g.GET("/:code/probability/pct", h.ProbabilityByPct)
}

func (h *StocksEchoHandler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "欢迎使用股票分析服务"})
}

func (h *StocksEchoHandler) List(c echo.Context) error {
	stocks, err := h.svc.FilteredStocks(c.Request().Context())
	if err != nil || len(stocks) == 0 {
		if err != nil {
			h.logger.Error("list usecase error", xlogger.Error(err))
		}
		return xhttp.ErrorResponse(c, http.StatusInternalServerError, "获取股票列表失败", []models.Instrument{})
	}
	return xhttp.ListResponse(c, "获取股票列表成功", stocks, len(stocks))
}

func (h *StocksEchoHandler) Info(c echo.Context) error {
	req := &models.StockCodeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	info, err := h.svc.StockInfo(c.Request().Context(), req.Code)
	if err != nil {
		return h.fail(c, "info", err, http.StatusNotFound)
	}
	return xhttp.SuccessResponse(c, "获取股票信息成功", info)
}

func (h *StocksEchoHandler) AllProbability(c echo.Context) error {
	req := &models.AllProbabilityRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.svc.AllStocksProbability(c.Request().Context(), models.Period(req.TimePeriod))
	if err != nil {
		return h.fail(c, "all probability", err, http.StatusInternalServerError)
	}
	return xhttp.ListResponse(c, "获取所有股票涨跌概率成功", res, len(res))
}

func (h *StocksEchoHandler) Probability(c echo.Context) error {
	req := &models.StockProbabilityRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.svc.StockProbability(c.Request().Context(), req.Code, models.Period(req.TimePeriod))
	if err != nil {
		return h.fail(c, "probability", err, http.StatusNotFound)
	}
	return xhttp.SuccessResponse(c, "获取股票涨跌概率成功", res)
}

func (h *StocksEchoHandler) ProbabilityByPct(c echo.Context) error {
	req := &models.PctProbabilityRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	pct, err := strconv.ParseFloat(req.PctChg, 64)
	if err != nil {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{Code: "ERR_NUMERIC", Field: "pct_chg", Message: "pct_chg must be a number"}})
	}

	res, err := h.svc.ProbabilityByPct(c.Request().Context(), req.Code, pct)
	if err != nil {
		return h.fail(c, "probability by pct", err, http.StatusNotFound)
	}
	return xhttp.SuccessResponse(c, "获取股票在特定涨幅下的平均概率成功", res)
}

// fail maps a usecase error to an error envelope. Classified domain errors
// get domainStatus; anything else is a 500.
func (h *StocksEchoHandler) fail(c echo.Context, op string, err error, domainStatus int) error {
	status := http.StatusInternalServerError
	if models.KindOf(err) != models.KindUnknown {
		status = domainStatus
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error(op+" usecase error", xlogger.Error(err))
	} else {
		h.logger.Warn(op+" usecase error", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_"+models.KindOf(err).String(), err.Error(), status).WithError(err))
}
