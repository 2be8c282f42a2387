package api

import (
	"fmt"
	"net/http"
	"time"

	"tickerfeed/internal/obs"
	"tickerfeed/internal/query"
	"tickerfeed/pkg/exception"

	"github.com/gin-gonic/gin"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// StatusFunc reports the feed state name for the health endpoint.
type StatusFunc func() string

type priceResponse struct {
	Price     string `json:"price"`
	Timestamp string `json:"timestamp"`
}

type healthResponse struct {
	Feed    string       `json:"feed"`
	Metrics obs.Snapshot `json:"metrics"`
}

// PriceHandler serves the price query endpoint.
type PriceHandler struct {
	query   *query.Service
	status  StatusFunc
	metrics *obs.Metrics
}

// NewPriceHandler creates the handler. status and metrics may be nil.
func NewPriceHandler(q *query.Service, status StatusFunc, metrics *obs.Metrics) *PriceHandler {
	return &PriceHandler{
		query:   q,
		status:  status,
		metrics: metrics,
	}
}

// GetPrice serves GET /prices/:symbol.
func (h *PriceHandler) GetPrice(c *gin.Context) {
	symbol := c.Param("symbol")
	if symbol == "" {
		c.String(http.StatusBadRequest, "Missing symbol")
		return
	}

	quote, err := h.query.Price(symbol)
	if err != nil {
		switch {
		case errors.Is(err, exception.ErrInvalidSymbol):
			c.String(http.StatusBadRequest, fmt.Sprintf("Invalid symbol format. Expected BASE_CCY-QUOTE_CCY. Got %s", symbol))
		case errors.Is(err, exception.ErrPriceNotFound):
			c.String(http.StatusNotFound, fmt.Sprintf("Ticker price for symbol '%s' not found.", symbol))
		default:
			logs.Errorf("query price %s, err: %+v", symbol, err)
			c.String(http.StatusInternalServerError, "internal error")
		}
		return
	}

	c.JSON(http.StatusOK, priceResponse{
		Price:     quote.Price,
		Timestamp: quote.Timestamp.Format(time.RFC3339),
	})
}

// Health serves GET /healthz.
func (h *PriceHandler) Health(c *gin.Context) {
	state := "unknown"
	if h.status != nil {
		state = h.status()
	}
	c.JSON(http.StatusOK, healthResponse{
		Feed:    state,
		Metrics: h.metrics.Snapshot(),
	})
}
