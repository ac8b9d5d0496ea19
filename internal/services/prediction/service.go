// Package prediction turns a form submission into a sales estimate.
package prediction

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"sales-predictor/internal/cache"
	"sales-predictor/internal/common/errors"
	"sales-predictor/internal/common/logger"
	"sales-predictor/internal/common/metrics"
	"sales-predictor/internal/common/observability"
	"sales-predictor/internal/common/validation"
	"sales-predictor/internal/history"
	"sales-predictor/internal/models"
	"sales-predictor/internal/predictor"
)

const (
	SourceForm   = "form"
	SourceAPI    = "api"
	SourceWorker = "worker"
)

// RequestMeta identifies who asked for a prediction.
type RequestMeta struct {
	Source    string
	RequestID string
}

type Options struct {
	RejectPlaceholders bool
	Timeout            time.Duration
}

// HistoryRecorder persists prediction attempts.
type HistoryRecorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Dependencies are optional collaborators; nil fields are skipped.
type Dependencies struct {
	Cache         cache.Cache
	History       HistoryRecorder
	Observability *observability.Observability
	Logger        logger.Logger
}

type describer interface {
	Name() string
	Version() string
}

type Service struct {
	model     predictor.Predictor
	modelName string
	version   string
	validator *validation.Validator
	opts      Options
	cache     cache.Cache
	history   HistoryRecorder
	obs       *observability.Observability
	tracer    trace.Tracer
	logger    logger.Logger
}

// NewService binds the loaded model to the request path. model may be nil;
// every prediction then fails with MODEL_UNAVAILABLE.
func NewService(model predictor.Predictor, opts Options, deps Dependencies) (*Service, error) {
	if m, ok := model.(*predictor.Model); ok && m == nil {
		model = nil
	}

	v, err := validation.NewValidator(models.InputSchema())
	if err != nil {
		return nil, fmt.Errorf("input schema: %w", err)
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	c := deps.Cache
	if c == nil {
		c = cache.Nop{}
	}

	s := &Service{
		model:     model,
		validator: v,
		opts:      opts,
		cache:     c,
		history:   deps.History,
		obs:       deps.Observability,
		tracer:    deps.Observability.Tracer(),
		logger:    log.WithFields(map[string]interface{}{"component": "prediction"}),
	}
	if d, ok := model.(describer); ok {
		s.modelName, s.version = d.Name(), d.Version()
	}
	return s, nil
}

// Ready reports whether a model is bound.
func (s *Service) Ready() bool { return s.model != nil }

func (s *Service) ModelVersion() string { return s.version }

// Predict validates req, scores it and returns the display-ready result.
// Every failure is a *errors.StandardError.
func (s *Service) Predict(ctx context.Context, req models.PredictionRequest, meta RequestMeta) (result *models.PredictionResult, err error) {
	start := time.Now()
	if meta.RequestID == "" {
		meta.RequestID = uuid.NewString()
	}
	if meta.Source == "" {
		meta.Source = SourceAPI
	}

	ctx, span := s.tracer.Start(ctx, "prediction.Predict", trace.WithAttributes(
		attribute.String("prediction.source", meta.Source),
		attribute.String("prediction.request_id", meta.RequestID),
	))
	defer span.End()

	defer func() {
		status := history.StatusSuccess
		if err != nil {
			status = history.StatusError
			span.RecordError(err)
			span.SetStatus(codes.Error, string(errors.AsStandardError(err).Code))
		}
		elapsed := time.Since(start)
		metrics.ObservePrediction(meta.Source, status, elapsed)
		s.obs.RecordPrediction(ctx, meta.Source, status, elapsed)
		s.record(ctx, req, meta, result, err)
	}()

	if err := s.validate(req); err != nil {
		s.logger.Warn("Prediction request rejected", map[string]interface{}{
			"requestId": meta.RequestID,
			"traceId":   span.SpanContext().TraceID().String(),
			"source":    meta.Source,
			"error":     err.Error(),
		})
		return nil, err
	}

	if s.model == nil {
		return nil, errors.NewModelUnavailableError("no model loaded")
	}

	rec := req.Record()
	key := cache.Key(s.version, rec)

	if v, ok := s.cacheGet(ctx, key); ok {
		span.SetAttributes(attribute.Bool("prediction.cached", true))
		return s.result(meta, v, true), nil
	}

	v, err := s.infer(ctx, rec)
	if err != nil {
		s.logger.Error("Prediction failed", map[string]interface{}{
			"requestId": meta.RequestID,
			"traceId":   span.SpanContext().TraceID().String(),
			"source":    meta.Source,
			"error":     err.Error(),
		})
		return nil, err
	}

	if err := s.cache.Set(ctx, key, v); err != nil {
		metrics.CacheResult("error")
		s.logger.Warn("Failed to cache prediction", map[string]interface{}{"error": err.Error()})
	}

	s.logger.Debug("Prediction served", map[string]interface{}{
		"requestId":      meta.RequestID,
		"source":         meta.Source,
		"predictedSales": v,
		"durationMs":     time.Since(start).Milliseconds(),
	})
	return s.result(meta, v, false), nil
}

// ParseRequest checks a raw JSON document against the input schema before
// decoding it, so missing fields are reported instead of defaulting to zero.
func (s *Service) ParseRequest(data []byte) (models.PredictionRequest, error) {
	var req models.PredictionRequest

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return req, errors.NewValidationFailedError("request body must be a JSON object: " + err.Error())
	}
	if res := s.validator.Validate(doc); !res.Valid {
		return req, errors.NewValidationFailedError(res.Error())
	}
	req, err := models.DecodeRequest(data)
	if err != nil {
		return req, errors.NewValidationFailedError(err.Error())
	}
	return req, nil
}

func (s *Service) result(meta RequestMeta, v float64, cached bool) *models.PredictionResult {
	return &models.PredictionResult{
		RequestID:      meta.RequestID,
		PredictedSales: v,
		Display:        FormatPrediction(v),
		ModelName:      s.modelName,
		ModelVersion:   s.version,
		Cached:         cached,
		PredictedAt:    time.Now().UTC(),
	}
}

func (s *Service) validate(req models.PredictionRequest) error {
	res := s.validator.Validate(req)
	if !res.Valid {
		return errors.NewValidationFailedError(res.Error())
	}
	if s.opts.RejectPlaceholders {
		if fields := req.Placeholders(); len(fields) > 0 {
			return errors.NewValidationFailedError("select a value for: " + strings.Join(fields, ", "))
		}
	}
	return nil
}

func (s *Service) cacheGet(ctx context.Context, key string) (float64, bool) {
	v, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheResult("error")
		s.logger.Warn("Prediction cache lookup failed", map[string]interface{}{"error": err.Error()})
		return 0, false
	case ok:
		metrics.CacheResult("hit")
	default:
		metrics.CacheResult("miss")
	}
	return v, ok
}

type outcome struct {
	value float64
	err   error
}

// infer runs the model on its own goroutine so a panic or a hung model
// cannot take the caller down with it.
func (s *Service) infer(ctx context.Context, rec models.Record) (float64, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%v", r)}
			}
		}()
		out, err := s.model.Predict(ctx, []models.Record{rec})
		switch {
		case err != nil:
			done <- outcome{err: err}
		case len(out) == 0:
			done <- outcome{err: stderrors.New("predictor returned no values")}
		case math.IsNaN(out[0]) || math.IsInf(out[0], 0):
			done <- outcome{err: fmt.Errorf("predictor returned non-finite value %v", out[0])}
		default:
			done <- outcome{value: out[0]}
		}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if stderrors.Is(o.err, context.DeadlineExceeded) {
				return 0, errors.NewInferenceTimeoutError(s.opts.Timeout)
			}
			return 0, errors.NewInferenceFailedError(o.err)
		}
		return o.value, nil
	case <-ctx.Done():
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return 0, errors.NewInferenceTimeoutError(s.opts.Timeout)
		}
		return 0, errors.NewInferenceFailedError(ctx.Err())
	}
}

func (s *Service) record(ctx context.Context, req models.PredictionRequest, meta RequestMeta, result *models.PredictionResult, err error) {
	if s.history == nil {
		return
	}

	input, _ := json.Marshal(req)
	e := history.Entry{
		RequestID:    meta.RequestID,
		Source:       meta.Source,
		ModelVersion: s.version,
		Input:        input,
		Status:       history.StatusSuccess,
	}
	if result != nil {
		v := result.PredictedSales
		e.PredictedSales = &v
	}
	if err != nil {
		stdErr := errors.AsStandardError(err)
		e.Status = history.StatusError
		e.ErrorCode = string(stdErr.Code)
		e.ErrorMessage = stdErr.UserMessage()
	}

	// detached so a cancelled request is still recorded
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if herr := s.history.Record(hctx, e); herr != nil {
		s.logger.Warn("Failed to record prediction history", map[string]interface{}{
			"requestId": meta.RequestID,
			"error":     herr.Error(),
		})
	}
}

// FormatPrediction renders a successful estimate for display.
func FormatPrediction(v float64) string {
	return fmt.Sprintf("Predicted Sales: %.2f", v)
}

// FormatError renders a failed prediction for display. The original error
// text is kept verbatim.
func FormatError(err error) string {
	if err == nil {
		return "Error in prediction: unknown error"
	}
	return "Error in prediction: " + errors.AsStandardError(err).UserMessage()
}
