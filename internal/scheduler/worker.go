package scheduler

import (
	"context"
	"errors"
	"fmt"

	"callcenter_backend/internal/leads/repository"
	"callcenter_backend/platform/config"
	"callcenter_backend/platform/logger"
	"callcenter_backend/platform/metrics"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Store is what the task handlers need from storage.
type Store interface {
	CreateAgentNotification(ctx context.Context, agentID uuid.UUID, title, content string, resourceID *uuid.UUID) (repository.AgentNotification, error)
	ReconcileLeadCounts(ctx context.Context) ([]repository.CounterDrift, error)
}

// Handlers processes queued tasks.
type Handlers struct {
	store   Store
	metrics *metrics.Metrics
	log     *logger.Logger
}

// NewHandlers creates task handlers. m may be nil.
func NewHandlers(store Store, m *metrics.Metrics, log *logger.Logger) *Handlers {
	return &Handlers{store: store, metrics: m, log: log}
}

// Register mounts every handler on mux.
func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskAgentLeadsNotice, h.HandleAgentLeadsNotice)
	mux.HandleFunc(TaskReconcileLeadCounts, h.HandleReconcileLeadCounts)
}

func (h *Handlers) HandleAgentLeadsNotice(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseAgentLeadsNoticePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	agentID, err := uuid.Parse(payload.AgentID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	var poolID *uuid.UUID
	if payload.PoolID != "" {
		id, err := uuid.Parse(payload.PoolID)
		if err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		poolID = &id
	}

	title := "New leads assigned"
	content := fmt.Sprintf("%d lead(s) were assigned to you.", payload.Count)
	if payload.Count == 1 {
		content = "1 lead was assigned to you."
	}

	_, err = h.store.CreateAgentNotification(ctx, agentID, title, content, poolID)
	if errors.Is(err, repository.ErrNotFound) {
		h.log.Warn("agent notice dropped, agent not found", "agentId", agentID)
		return nil
	}
	return err
}

func (h *Handlers) HandleReconcileLeadCounts(ctx context.Context, _ *asynq.Task) error {
	drifts, err := h.store.ReconcileLeadCounts(ctx)
	if err != nil {
		return err
	}

	for _, d := range drifts {
		h.log.Warn("campaign lead count drift repaired",
			"campaignId", d.CampaignID,
			"stored", d.Stored,
			"actual", d.Actual,
		)
	}
	if h.metrics != nil && len(drifts) > 0 {
		h.metrics.CounterDriftRepaired.Add(float64(len(drifts)))
	}
	return nil
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, handlers *Handlers, log *logger.Logger) (*Worker, error) {
	opt, err := clientOpt(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	handlers.Register(mux)

	return &Worker{server: server, mux: mux, log: log}, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
