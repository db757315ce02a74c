package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"rebalancer/internal/portfolio"
	"rebalancer/internal/service"
)

type Handler struct {
	svc *service.PortfolioService
	log *logrus.Logger
}

func NewHandler(svc *service.PortfolioService, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	r.GET("/instruments", h.ListInstruments)
	r.PUT("/instruments/:symbol", h.PutInstrumentPrice)
	r.GET("/presets", h.ListPresets)

	r.POST("/portfolios", h.CreatePortfolio)
	r.GET("/portfolios", h.ListPortfolios)
	r.GET("/portfolios/:name", h.GetPortfolio)
	r.PUT("/portfolios/:name/target", h.PutTarget)
	r.GET("/portfolios/:name/deviation", h.GetDeviation)
	r.POST("/portfolios/:name/rebalance", h.PostRebalance)
	r.POST("/portfolios/:name/deposit", h.PostDeposit)
	r.POST("/portfolios/:name/withdraw", h.PostWithdraw)
}

type PriceRequest struct {
	Price float64 `json:"price" binding:"required"`
}

type TargetRequest struct {
	Preset     string             `json:"preset"`
	Allocation map[string]float64 `json:"allocation"`
}

type AmountRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

func (h *Handler) ListInstruments(c *gin.Context) {
	items := []gin.H{}
	for _, p := range h.svc.Instruments() {
		items = append(items, gin.H{"symbol": p.Symbol, "price": money(p.Price)})
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) PutInstrumentPrice(c *gin.Context) {
	var req PriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid price body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.svc.UpdatePrice(c.Param("symbol"), req.Price)
	if err != nil {
		h.fail(c, "update price", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": p.Symbol, "price": money(p.Price)})
}

func (h *Handler) ListPresets(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Presets())
}

func (h *Handler) CreatePortfolio(c *gin.Context) {
	var req service.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid post body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sum, err := h.svc.Create(req)
	if err != nil {
		h.fail(c, "create portfolio", err)
		return
	}
	c.JSON(http.StatusCreated, renderSummary(sum))
}

func (h *Handler) ListPortfolios(c *gin.Context) {
	res := []gin.H{}
	for _, sum := range h.svc.List() {
		res = append(res, renderSummary(sum))
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetPortfolio(c *gin.Context) {
	sum, err := h.svc.Get(c.Param("name"))
	if err != nil {
		h.fail(c, "get portfolio", err)
		return
	}
	c.JSON(http.StatusOK, renderSummary(sum))
}

func (h *Handler) PutTarget(c *gin.Context) {
	var req TargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid target body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sum, err := h.svc.SetTarget(c.Param("name"), req.Preset, req.Allocation)
	if err != nil {
		h.fail(c, "set target", err)
		return
	}
	c.JSON(http.StatusOK, renderSummary(sum))
}

func (h *Handler) GetDeviation(c *gin.Context) {
	plan, err := h.svc.Deviation(c.Param("name"))
	if err != nil {
		h.fail(c, "get deviation", err)
		return
	}
	c.JSON(http.StatusOK, renderPlan(plan))
}

func (h *Handler) PostRebalance(c *gin.Context) {
	plan, err := h.svc.Rebalance(c.Param("name"))
	if err != nil {
		h.fail(c, "rebalance", err)
		return
	}
	c.JSON(http.StatusOK, renderPlan(plan))
}

func (h *Handler) PostDeposit(c *gin.Context) {
	h.moveMoney(c, "deposit", h.svc.Deposit)
}

func (h *Handler) PostWithdraw(c *gin.Context) {
	h.moveMoney(c, "withdraw", h.svc.Withdraw)
}

func (h *Handler) moveMoney(c *gin.Context, op string, fn func(string, float64) (service.Summary, error)) {
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid %s body: %v", op, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sum, err := fn(c.Param("name"), req.Amount)
	if err != nil {
		h.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, renderSummary(sum))
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Errorf("%s failed: %v", op, err)
	} else {
		h.log.Warnf("%s rejected: %v", op, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrPortfolioNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrPortfolioExists):
		return http.StatusConflict
	case errors.Is(err, portfolio.ErrInsufficientFunds),
		errors.Is(err, portfolio.ErrInsufficientQuantity),
		errors.Is(err, portfolio.ErrNoTarget),
		errors.Is(err, portfolio.ErrEmptyHoldings):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrPresetNotFound),
		errors.Is(err, service.ErrInvalidName),
		errors.Is(err, portfolio.ErrInvalidSymbol),
		errors.Is(err, portfolio.ErrInvalidPrice),
		errors.Is(err, portfolio.ErrInstrumentNotFound),
		errors.Is(err, portfolio.ErrInvalidQuantity),
		errors.Is(err, portfolio.ErrAllocationSum),
		errors.Is(err, portfolio.ErrInvalidAllocationValue),
		errors.Is(err, portfolio.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func money(v float64) string { return decimal.NewFromFloat(v).StringFixed(4) }

func renderSummary(sum service.Summary) gin.H {
	positions := []gin.H{}
	for _, p := range sum.Positions {
		positions = append(positions, gin.H{
			"symbol":        p.Symbol,
			"quantity":      decimal.NewFromFloat(p.Quantity).StringFixed(6),
			"current_price": money(p.Price),
			"current_value": money(p.Value),
		})
	}
	return gin.H{"name": sum.Name, "positions": positions, "target": sum.Target, "total_value": money(sum.Value)}
}

func renderPlan(plan service.Plan) gin.H {
	lines := []string{}
	for _, in := range plan.Instructions {
		lines = append(lines, in.String())
	}
	return gin.H{"name": plan.Name, "total_value": money(plan.Value), "instructions": plan.Instructions, "summary": lines}
}
