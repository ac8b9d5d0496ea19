package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func metricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "sales-predictor",
		"version": s.deps.Version,
	})
}

// ready reports 503 until a model is bound and every dependency answers.
func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	ok := true

	if s.deps.Service.Ready() {
		checks["model"] = "ok"
	} else {
		checks["model"] = "not loaded"
		ok = false
	}

	for _, chk := range s.deps.Checks {
		if err := chk.Check(ctx); err != nil {
			checks[chk.Name] = err.Error()
			ok = false
			continue
		}
		checks[chk.Name] = "ok"
	}

	status := http.StatusOK
	state := "ready"
	if !ok {
		status = http.StatusServiceUnavailable
		state = "not ready"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}
