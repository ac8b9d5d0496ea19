// Package web serves the prediction form and its JSON API.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sales-predictor/internal/common/config"
	"sales-predictor/internal/common/logger"
	"sales-predictor/internal/history"
	"sales-predictor/internal/predictor"
	"sales-predictor/internal/services/prediction"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	PageTitle       = "Sales Prediction Web Application"
	PageDescription = "Enter the store and item details below to predict sales."
	SubmitLabel     = "Predict Sales"
)

// HistoryReader lists recorded predictions.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Check is a named readiness probe.
type Check struct {
	Name  string
	Check func(ctx context.Context) error
}

type Deps struct {
	Service *prediction.Service
	Model   *predictor.Model
	History HistoryReader
	Checks  []Check
	Logger  logger.Logger
	Version string
}

type Server struct {
	engine *gin.Engine
	http   *http.Server
	deps   Deps
	log    logger.Logger
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"bound": func(v *float64) string { return strconv.FormatFloat(*v, 'f', -1, 64) },
		"num":   func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
	}).ParseFS(templateFS, "templates/*.html")
}

// NewServer wires routes onto a fresh gin engine.
func NewServer(cfg config.ServerConfig, deps Deps) (*Server, error) {
	if deps.Service == nil {
		return nil, errors.New("web: prediction service is required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	log := deps.Logger.WithFields(map[string]interface{}{"component": "http"})

	engine := gin.New()
	engine.SetHTMLTemplate(tmpl)
	engine.Use(RequestID(), Recovery(log), AccessLog(log), SecurityHeaders(), BodyLimit(maxBodyBytes))

	s := &Server{engine: engine, deps: deps, log: log}
	s.routes()

	s.http = &http.Server{
		Addr:         cfg.Address(),
		Handler:      engine,
		ReadTimeout:  config.GetDuration(cfg.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.WriteTimeout),
	}
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/", s.showForm)
	s.engine.POST("/predict", s.submitForm)

	s.engine.GET("/health", s.health)
	s.engine.GET("/ready", s.ready)
	s.engine.GET("/metrics", metricsHandler())

	api := s.engine.Group("/api/v1")
	api.POST("/predict", s.apiPredict)
	api.GET("/form", s.apiForm)
	api.GET("/model", s.apiModel)
	api.GET("/history", s.apiHistory)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", map[string]interface{}{"addr": s.http.Addr})
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
