package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	service string
	store   Pinger
}

func NewHealthHandler(service string, store Pinger) *HealthHandler {
	return &HealthHandler{service: service, store: store}
}

func (h *HealthHandler) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status, code, storeStatus := "ok", http.StatusOK, "ok"
	if err := h.store.Ping(ctx); err != nil {
		status, code, storeStatus = "degraded", http.StatusServiceUnavailable, "unreachable"
	}

	return c.JSON(code, echo.Map{
		"status":    status,
		"service":   h.service,
		"store":     storeStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
