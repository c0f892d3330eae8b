// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"funnel-workers/internal/common/config"
	"funnel-workers/internal/common/logger"
)

// JobHandler is implemented by every task worker.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// Pool opens job workers on one Zeebe client and closes them together.
type Pool struct {
	client  zbc.Client
	logger  logger.Logger
	workers map[string]worker.JobWorker
	order   []string
}

func NewPool(client zbc.Client, log logger.Logger) *Pool {
	return &Pool{
		client:  client,
		logger:  log,
		workers: make(map[string]worker.JobWorker),
	}
}

// Open starts polling taskType. Disabled workers and duplicate task types are skipped.
func (p *Pool) Open(taskType string, wcfg config.WorkerConfig, handler JobHandler) bool {
	if !wcfg.Enabled {
		p.logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return false
	}
	if _, ok := p.workers[taskType]; ok {
		p.logger.Warn("worker already registered", map[string]interface{}{"taskType": taskType})
		return false
	}

	timeout := time.Duration(wcfg.Timeout) * time.Millisecond
	jw := p.client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(timeout).
		Open()

	p.workers[taskType] = jw
	p.order = append(p.order, taskType)
	p.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout":       timeout.String(),
	})
	return true
}

// TaskTypes lists the open workers in registration order.
func (p *Pool) TaskTypes() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Close stops every worker and waits for in-flight jobs.
func (p *Pool) Close() {
	for i := len(p.order) - 1; i >= 0; i-- {
		taskType := p.order[i]
		jw := p.workers[taskType]
		jw.Close()
		jw.AwaitClose()
		p.logger.Info("worker stopped", map[string]interface{}{"taskType": taskType})
	}
	p.workers = make(map[string]worker.JobWorker)
	p.order = nil
}
