package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// AuditLog is one request or order status change worth keeping.
type AuditLog struct {
	Timestamp time.Time
	OrderID   string
	OldState  string
	NewState  string
	Endpoint  string
	Request   string
	Response  string
	Message   string
}

type AuditPoolConfig struct {
	BatchSize   int
	Timeout     time.Duration
	ChannelSize int
}

type AuditLogProcessor interface {
	Process(ctx context.Context, batch []AuditLog) error
}

type DBProcessor struct {
	db *sql.DB
}

func NewDBProcessor(db *sql.DB) *DBProcessor {
	return &DBProcessor{db: db}
}

func (p *DBProcessor) Process(ctx context.Context, batch []AuditLog) error {
	if len(batch) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO audit_logs (timestamp, order_id, old_state, new_state, endpoint, request, response, message) VALUES `)

	params := make([]any, 0, len(batch)*8)
	paramIndex := 1
	for i, rec := range batch {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)", paramIndex, paramIndex+1, paramIndex+2, paramIndex+3, paramIndex+4, paramIndex+5, paramIndex+6, paramIndex+7))
		paramIndex += 8
		params = append(params, rec.Timestamp, rec.OrderID, rec.OldState, rec.NewState, rec.Endpoint, rec.Request, rec.Response, rec.Message)
	}
	if _, err := p.db.ExecContext(ctx, sb.String(), params...); err != nil {
		return fmt.Errorf("DBProcessor error: %w", err)
	}
	return nil
}

// LogProcessor writes records to slog. A non-empty Filter keeps only records
// whose message contains it, case-insensitively.
type LogProcessor struct {
	Filter string
	Logger *slog.Logger
}

func (p *LogProcessor) Process(ctx context.Context, batch []AuditLog) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, rec := range batch {
		if !p.keep(rec) {
			continue
		}
		logger.InfoContext(ctx, "audit",
			"at", rec.Timestamp.Format(time.RFC3339),
			"order_id", rec.OrderID,
			"old_state", rec.OldState,
			"new_state", rec.NewState,
			"endpoint", rec.Endpoint,
			"message", rec.Message,
		)
	}
	return nil
}

func (p *LogProcessor) keep(rec AuditLog) bool {
	return p.Filter == "" || strings.Contains(strings.ToLower(rec.Message), strings.ToLower(p.Filter))
}

type AuditWorkerPool struct {
	inputCh    chan AuditLog
	processors []AuditLogProcessor
	batchSize  int
	timeout    time.Duration

	wg sync.WaitGroup
}

func NewAuditWorkerPool(cfg AuditPoolConfig, processors ...AuditLogProcessor) *AuditWorkerPool {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}
	return &AuditWorkerPool{
		inputCh:    make(chan AuditLog, cfg.ChannelSize),
		processors: processors,
		batchSize:  cfg.BatchSize,
		timeout:    cfg.Timeout,
	}
}

func (p *AuditWorkerPool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.worker(ctx)
		}()
	}
}

func (p *AuditWorkerPool) worker(ctx context.Context) {
	var batch []AuditLog
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			batch = p.drain(batch)
			if len(batch) > 0 {
				p.processBatch(context.WithoutCancel(ctx), batch)
			}
			return
		case rec := <-p.inputCh:
			batch = append(batch, rec)
			if len(batch) >= p.batchSize {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				p.processBatch(ctx, batch)
				batch = nil
				timer.Reset(p.timeout)
			}
		case <-timer.C:
			if len(batch) > 0 {
				p.processBatch(ctx, batch)
				batch = nil
			}
			timer.Reset(p.timeout)
		}
	}
}

// drain picks up records queued before shutdown.
func (p *AuditWorkerPool) drain(batch []AuditLog) []AuditLog {
	for {
		select {
		case rec := <-p.inputCh:
			batch = append(batch, rec)
		default:
			return batch
		}
	}
}

func (p *AuditWorkerPool) processBatch(ctx context.Context, batch []AuditLog) {
	for _, proc := range p.processors {
		if err := proc.Process(ctx, batch); err != nil {
			slog.ErrorContext(ctx, "audit batch failed", "size", len(batch), "error", err)
		}
	}
}

// Log never blocks; records are dropped when the queue is full.
func (p *AuditWorkerPool) Log(record AuditLog) {
	select {
	case p.inputCh <- record:
	default:
		slog.Warn("audit log channel full, dropping log", "endpoint", record.Endpoint)
	}
}

func (p *AuditWorkerPool) Shutdown(cancelFunc context.CancelFunc) {
	cancelFunc()
	p.wg.Wait()
}
