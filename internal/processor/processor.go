package taskprocessor

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/bigmove/backend/internal/repository"
)

type Publisher interface {
	Publish(topic, key string, message []byte) error
}

// TaskProcessor drains the outbox into Kafka. A task that keeps failing is
// parked as NO_ATTEMPTS_LEFT after maxAttempts tries.
type TaskProcessor struct {
	repo         repository.TaskRepository
	producer     Publisher
	topic        string
	pollInterval time.Duration
	limit        int
	maxAttempts  int
	retryDelay   time.Duration
	now          func() time.Time
}

func NewTaskProcessor(repo repository.TaskRepository, producer Publisher, topic string, pollInterval time.Duration, limit int) *TaskProcessor {
	return &TaskProcessor{
		repo:         repo,
		producer:     producer,
		topic:        topic,
		pollInterval: pollInterval,
		limit:        limit,
		maxAttempts:  3,
		retryDelay:   2 * time.Second,
		now:          time.Now,
	}
}

func (p *TaskProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessPendingTasks(ctx)
		}
	}
}

// ProcessPendingTasks publishes one batch of due tasks.
func (p *TaskProcessor) ProcessPendingTasks(ctx context.Context) {
	tasks, err := p.repo.GetPendingTasks(ctx, p.limit, p.maxAttempts)
	if err != nil {
		slog.ErrorContext(ctx, "fetch pending tasks", "error", err)
		return
	}
	for _, task := range tasks {
		if err := p.repo.MarkTaskProcessing(ctx, task.ID); err != nil {
			slog.ErrorContext(ctx, "mark task processing", "task_id", task.ID, "error", err)
			continue
		}

		if err := p.producer.Publish(p.topic, messageKey(task.Payload), task.Payload); err != nil {
			p.update(ctx, task, err)
			continue
		}
		slog.InfoContext(ctx, "task published", "task_id", task.ID, "topic", p.topic)
		if err := p.repo.DeleteTask(ctx, task.ID); err != nil {
			slog.ErrorContext(ctx, "delete published task", "task_id", task.ID, "error", err)
		}
	}
}

func (p *TaskProcessor) update(ctx context.Context, task *repository.Task, err error) {
	newAttempt := task.AttemptCount + 1
	newStatus := repository.TaskStatusFailed
	if newAttempt >= p.maxAttempts {
		newStatus = repository.TaskStatusNoAttemptsLeft
	}
	nextAttempt := p.now().Add(p.retryDelay)
	if errUpd := p.repo.UpdateTaskFailure(ctx, task.ID, newAttempt, newStatus, nextAttempt); errUpd != nil {
		slog.ErrorContext(ctx, "record task failure", "task_id", task.ID, "error", errUpd)
	}
	slog.WarnContext(ctx, "task publish failed", "task_id", task.ID, "attempt", newAttempt, "status", newStatus, "error", err)
}

func messageKey(payload []byte) string {
	var k struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(payload, &k); err != nil {
		return ""
	}
	return k.OrderID
}
