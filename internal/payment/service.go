package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bigmove/backend/internal/apperr"
	"github.com/bigmove/backend/internal/audit"
	"github.com/bigmove/backend/internal/models"
)

type Gateway interface {
	Confirm(ctx context.Context, in ConfirmRequest) (*Confirmation, error)
}

type OrderStore interface {
	GetByID(ctx context.Context, id string) (*models.Order, error)
	UpdateStatus(ctx context.Context, o *models.Order, from models.OrderStatus, eventType models.EventType) error
}

type Auditor interface {
	Log(record audit.AuditLog)
}

type Service struct {
	orders  OrderStore
	gateway Gateway
	auditor Auditor
	now     func() time.Time
}

func NewService(orders OrderStore, gateway Gateway, auditor Auditor) *Service {
	return &Service{orders: orders, gateway: gateway, auditor: auditor, now: time.Now}
}

// Confirm checks the amount against the stored order total before relaying
// to the gateway, then marks the order paid. Confirming an already paid order
// with the same payment key returns it unchanged.
func (s *Service) Confirm(ctx context.Context, in ConfirmRequest) (*models.Order, error) {
	in.PaymentKey = strings.TrimSpace(in.PaymentKey)
	in.OrderID = strings.TrimSpace(in.OrderID)
	if in.PaymentKey == "" || in.OrderID == "" || in.Amount <= 0 {
		return nil, fmt.Errorf("paymentKey, orderId and amount are required: %w", apperr.ErrInvalidInput)
	}

	o, err := s.orders.GetByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Status == models.OrderStatusPaid && o.PaymentKey == in.PaymentKey {
		return o, nil
	}
	if o.Status != models.OrderStatusPending {
		return nil, fmt.Errorf("order %s is %s: %w", o.ID, o.Status, apperr.ErrInvalidTransition)
	}
	if o.TotalPrice != in.Amount {
		slog.WarnContext(ctx, "payment amount mismatch", "order_id", o.ID, "expected", o.TotalPrice, "got", in.Amount)
		return nil, fmt.Errorf("order %s total %d, paid %d: %w", o.ID, o.TotalPrice, in.Amount, apperr.ErrAmountMismatch)
	}

	conf, err := s.gateway.Confirm(ctx, in)
	if err != nil {
		slog.ErrorContext(ctx, "payment confirm failed", "order_id", o.ID, "error", err)
		return nil, err
	}
	if conf.TotalAmount != 0 && conf.TotalAmount != o.TotalPrice {
		return nil, fmt.Errorf("gateway approved %d for %s: %w", conf.TotalAmount, o.ID, apperr.ErrAmountMismatch)
	}

	o.PaymentKey = in.PaymentKey
	o.Status = models.OrderStatusPaid
	o.UpdatedAt = s.now().UTC()
	if err := s.orders.UpdateStatus(ctx, o, models.OrderStatusPending, models.EventOrderPaid); err != nil {
		return nil, err
	}

	if s.auditor != nil {
		s.auditor.Log(audit.AuditLog{
			Timestamp: o.UpdatedAt,
			OrderID:   o.ID,
			OldState:  string(models.OrderStatusPending),
			NewState:  string(models.OrderStatusPaid),
			Endpoint:  "/payments/confirm",
			Message:   "order paid",
		})
	}
	slog.InfoContext(ctx, "order paid", "order_id", o.ID, "amount", o.TotalPrice, "method", conf.Method)
	return o, nil
}
