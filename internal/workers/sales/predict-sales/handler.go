package predictsales

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"sales-predictor/internal/common/errors"
	"sales-predictor/internal/common/logger"
	"sales-predictor/internal/common/metrics"
	"sales-predictor/internal/common/observability"
	"sales-predictor/internal/common/validation"
	"sales-predictor/internal/models"
	"sales-predictor/internal/services/prediction"
	"sales-predictor/pkg/registry"
)

const (
	TaskType = "predict-sales"
)

type Handler struct {
	config       *Config
	activity     *registry.Activity
	service      *prediction.Service
	input        *validation.Validator
	output       *validation.Validator
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
	logger       logger.Logger
}

func NewHandler(config *Config, activity *registry.Activity, service *prediction.Service, obs *observability.Observability, log logger.Logger) (*Handler, error) {
	if activity == nil {
		return nil, fmt.Errorf("no activity registered for task type %s", TaskType)
	}
	in, err := activity.InputValidator()
	if err != nil {
		return nil, err
	}
	out, err := activity.OutputValidator()
	if err != nil {
		return nil, err
	}

	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		activity:     activity,
		service:      service,
		input:        in,
		output:       out,
		errorHandler: errors.NewErrorHandler(log),
		obs:          obs,
		logger:       log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	status := "completed"
	defer func() {
		elapsed := time.Since(start)
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(elapsed.Seconds())
		h.obs.RecordJobProcessed(ctx, status)
		h.obs.RecordJobDuration(ctx, elapsed, status)
	}()

	if err := h.process(ctx, client, job); err != nil {
		status = "failed"
		stdErr := errors.AsStandardError(err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
		if bpmn := errors.ConvertToBPMNError(stdErr); !h.activity.Throws(bpmn.Code) {
			h.logger.Warn("error code not declared by activity", map[string]interface{}{
				"activity":  h.activity.ID,
				"errorCode": bpmn.Code,
			})
		}
		// the job context may already be spent
		h.errorHandler.HandleJobError(context.Background(), client, job, err)
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) process(ctx context.Context, client worker.JobClient, job entities.Job) error {
	input, err := h.ParseInput(job.Variables)
	if err != nil {
		return err
	}
	output, err := h.Execute(ctx, input, strconv.FormatInt(job.Key, 10))
	if err != nil {
		return err
	}
	return h.completeJob(ctx, client, job, output)
}

// ParseInput checks the job variables against the activity's input schema
// and decodes them.
func (h *Handler) ParseInput(variables string) (*Input, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &doc); err != nil {
		return nil, errors.NewParseError(err)
	}
	if res := h.input.Validate(doc); !res.Valid {
		return nil, errors.NewValidationFailedError(res.Error())
	}

	input, err := models.DecodeRequest([]byte(variables))
	if err != nil {
		return nil, errors.NewValidationFailedError(err.Error())
	}
	return &input, nil
}

// Execute scores input and returns the job's result variables.
func (h *Handler) Execute(ctx context.Context, input *Input, requestID string) (*Output, error) {
	if input == nil {
		return nil, errors.NewValidationFailedError("input cannot be nil")
	}

	res, err := h.service.Predict(ctx, *input, prediction.RequestMeta{
		Source:    prediction.SourceWorker,
		RequestID: requestID,
	})
	if err != nil {
		return nil, err
	}

	output := &Output{
		PredictedSales: res.PredictedSales,
		Display:        res.Display,
		ModelVersion:   res.ModelVersion,
		Cached:         res.Cached,
	}
	if vr := h.output.Validate(output); !vr.Valid {
		return nil, &errors.StandardError{
			Code:      errors.ErrCodeInternal,
			Message:   "Prediction output does not match the activity schema",
			Details:   vr.Error(),
			Timestamp: time.Now(),
		}
	}
	return output, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		return errors.NewParseError(err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return errors.NewExternalServiceError("zeebe", err)
	}
	return nil
}
