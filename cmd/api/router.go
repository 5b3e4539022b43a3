package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"openpayflow/internal/shared/middleware"
	"openpayflow/pkg/container"
)

var startedAt = time.Now()

// SetupRouter wires middleware and the /v1 route tree.
func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// ========================================
	// GLOBAL MIDDLEWARE
	// ========================================
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS())
	router.Use(middleware.RateLimit(c.Cache, c.Config.RateLimit.Max, c.Config.RateLimit.Window))

	// ========================================
	// ROUTES
	// ========================================
	v1 := router.Group("/v1")
	{
		// Health surfaces
		v1.GET("/healthz", healthz(c))
		v1.GET("/readyz", readyz(c))

		// Payments
		v1.POST("/payments", c.PaymentHandler.CreatePayment)
		v1.GET("/payments", c.PaymentHandler.ListPayments)
		v1.GET("/payments/:id", c.PaymentHandler.GetPayment)

		// Refunds
		v1.POST("/refunds", c.RefundHandler.CreateRefund)
		v1.GET("/refunds/:id", c.RefundHandler.GetRefund)

		// Webhook endpoints
		v1.POST("/webhook-endpoints", c.EndpointHandler.CreateEndpoint)
		v1.GET("/webhook-endpoints", c.EndpointHandler.ListEndpoints)
		v1.GET("/webhook-endpoints/:id", c.EndpointHandler.GetEndpoint)
		v1.PATCH("/webhook-endpoints/:id", c.EndpointHandler.UpdateEndpoint)
		v1.DELETE("/webhook-endpoints/:id", c.EndpointHandler.DeleteEndpoint)
		v1.GET("/webhook-endpoints/:id/deliveries", c.EndpointHandler.ListDeliveries)
	}

	return router
}

// healthz reports process liveness only.
func healthz(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(startedAt).String(),
			"version":   c.Config.App.Version,
		})
	}
}

// readyz probes each dependency and returns 503 if any is down.
func readyz(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{}
		healthy := true

		if err := c.DB.HealthCheck(checkCtx); err != nil {
			checks["database"] = "down: " + err.Error()
			healthy = false
		} else {
			checks["database"] = "up"
		}

		if err := c.Cache.Ping(checkCtx); err != nil {
			checks["redis"] = "down: " + err.Error()
			healthy = false
		} else {
			checks["redis"] = "up"
			if n, err := c.DeliveryQueue.PendingCount(checkCtx); err == nil {
				checks["delivery_queue_depth"] = n
			}
		}

		status := http.StatusOK
		state := "ready"
		if !healthy {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}

		ctx.JSON(status, gin.H{
			"status": state,
			"checks": checks,
		})
	}
}
