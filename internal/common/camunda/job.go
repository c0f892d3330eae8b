package camunda

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"funnel-workers/internal/common/errors"
	"funnel-workers/internal/common/logger"
	"funnel-workers/internal/common/metrics"
	"funnel-workers/internal/common/observability"
	"funnel-workers/internal/common/validation"
)

// Runner carries the lifecycle every handler shares: active-job gauge, timeout,
// completion with output variables, and failure reporting through ErrorHandler.
type Runner struct {
	taskType string
	timeout  time.Duration
	logger   logger.Logger
	obs      *observability.Observability
	errors   *errors.ErrorHandler
}

func NewRunner(taskType string, timeout time.Duration, log logger.Logger, obs *observability.Observability) *Runner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &Runner{
		taskType: taskType,
		timeout:  timeout,
		logger:   log,
		obs:      obs,
		errors:   errors.NewErrorHandler(log),
	}
}

// Run executes fn for job and reports the outcome back to the broker.
func (r *Runner) Run(client worker.JobClient, job entities.Job, fn func(ctx context.Context) (interface{}, error)) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(r.taskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(r.taskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	ctx, span := r.obs.StartSpan(ctx, "job."+r.taskType, "bpmnProcessId", job.GetBpmnProcessId())
	defer span.End()

	r.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	output, err := fn(ctx)
	if err == nil {
		err = complete(ctx, client, job, output)
	}
	if err != nil {
		span.RecordError(err)
		code := r.errors.HandleJobError(ctx, client, job, err)
		metrics.WorkerJobsFailed.WithLabelValues(r.taskType, string(code)).Inc()
		r.obs.RecordJobProcessed(ctx, r.taskType, "failed")
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(r.taskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(r.taskType).Observe(time.Since(startTime).Seconds())
	r.obs.RecordJobProcessed(ctx, r.taskType, "completed")
	r.obs.RecordJobDuration(ctx, r.taskType, time.Since(startTime))
	r.logger.Info("job completed", map[string]interface{}{
		"jobKey":   job.GetKey(),
		"duration": time.Since(startTime).String(),
	})
}

func complete(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		return errors.NewInvalidPayloadError("encode output variables: " + err.Error())
	}
	if _, err := cmd.Send(ctx); err != nil {
		return mapZeebeError(err, "complete job", 0)
	}
	return nil
}

// DecodeVariables checks the job variables against schema, when given, and
// unmarshals them into dst.
func DecodeVariables(job entities.Job, schema *validation.Schema, dst interface{}) error {
	raw := []byte(job.GetVariables())
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if schema != nil {
		if res := schema.ValidateJSON(raw); !res.Valid {
			return errors.NewInvalidPayloadError(strings.Join(res.GetErrorMessages(), "; "))
		}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.NewInvalidPayloadError("parse job variables: " + err.Error())
	}
	return nil
}
