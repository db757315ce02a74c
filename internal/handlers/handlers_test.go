package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebalancer/internal/models"
	"rebalancer/internal/portfolio"
	"rebalancer/internal/service"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	reg := portfolio.NewRegistry(logger)
	for sym, price := range map[string]float64{"A": 100, "B": 200} {
		_, err := reg.Set(sym, price)
		require.NoError(t, err)
	}
	presets := []models.Preset{
		{Name: "Balanced", Allocation: map[string]float64{"A": 0.5, "B": 0.5}},
		{Name: "AllB", Allocation: map[string]float64{"B": 1}},
	}
	svc := service.NewPortfolioService(reg, presets, logger)

	r := gin.New()
	NewHandler(svc, logger).Register(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var res map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	return w.Code, res
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)
	code, res := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", res["status"])
}

func TestCreateAndGetPortfolio(t *testing.T) {
	r := newTestRouter(t)

	code, res := do(t, r, http.MethodPost, "/portfolios", gin.H{"name": "demo", "preset": "balanced", "amount": 1000})
	require.Equal(t, http.StatusCreated, code, res)
	assert.Equal(t, "1000.0000", res["total_value"])

	code, res = do(t, r, http.MethodGet, "/portfolios/demo", nil)
	require.Equal(t, http.StatusOK, code)
	positions := res["positions"].([]interface{})
	require.Len(t, positions, 2)
	first := positions[0].(map[string]interface{})
	assert.Equal(t, "A", first["symbol"])
	assert.Equal(t, "5.000000", first["quantity"])

	code, _ = do(t, r, http.MethodPost, "/portfolios", gin.H{"name": "demo", "preset": "balanced", "amount": 1})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = do(t, r, http.MethodGet, "/portfolios/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCreatePortfolio_BadRequests(t *testing.T) {
	r := newTestRouter(t)

	code, _ := do(t, r, http.MethodPost, "/portfolios", gin.H{"preset": "balanced", "amount": 10})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, r, http.MethodPost, "/portfolios", gin.H{"name": "x", "allocation": gin.H{"A": 0.7}, "amount": 10})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, r, http.MethodPost, "/portfolios", gin.H{"name": "x", "preset": "nope", "amount": 10})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDeviationAndRebalance(t *testing.T) {
	r := newTestRouter(t)
	code, _ := do(t, r, http.MethodPost, "/portfolios", gin.H{"name": "demo", "preset": "balanced", "amount": 1000})
	require.Equal(t, http.StatusCreated, code)

	code, res := do(t, r, http.MethodPut, "/portfolios/demo/target", gin.H{"preset": "AllB"})
	require.Equal(t, http.StatusOK, code, res)

	code, res = do(t, r, http.MethodGet, "/portfolios/demo/deviation", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []interface{}{"Sell 5.00000 of A", "Buy 2.50000 of B"}, res["summary"])

	code, _ = do(t, r, http.MethodPost, "/portfolios/demo/rebalance", nil)
	require.Equal(t, http.StatusOK, code)

	code, res = do(t, r, http.MethodGet, "/portfolios/demo", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1000.0000", res["total_value"])
	assert.Len(t, res["positions"], 1)
}

func TestDepositWithdraw(t *testing.T) {
	r := newTestRouter(t)
	code, _ := do(t, r, http.MethodPost, "/portfolios", gin.H{"name": "demo", "preset": "balanced", "amount": 600})
	require.Equal(t, http.StatusCreated, code)

	code, res := do(t, r, http.MethodPost, "/portfolios/demo/deposit", gin.H{"amount": 400})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1000.0000", res["total_value"])

	code, _ = do(t, r, http.MethodPost, "/portfolios/demo/withdraw", gin.H{"amount": 5000})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = do(t, r, http.MethodPost, "/portfolios/demo/withdraw", gin.H{"amount": -5})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestInstrumentPriceUpdate(t *testing.T) {
	r := newTestRouter(t)
	code, _ := do(t, r, http.MethodPost, "/portfolios", gin.H{"name": "demo", "preset": "AllB", "amount": 200})
	require.Equal(t, http.StatusCreated, code)

	code, res := do(t, r, http.MethodPut, "/instruments/b", gin.H{"price": 300})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "B", res["symbol"])

	code, res = do(t, r, http.MethodGet, "/portfolios/demo", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "300.0000", res["total_value"])

	code, _ = do(t, r, http.MethodPut, "/instruments/b", gin.H{"price": -1})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestNoTargetIsUnprocessable(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(portfolio.ErrNoTarget))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
