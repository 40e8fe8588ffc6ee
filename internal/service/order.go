package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigmove/backend/internal/apperr"
	"github.com/bigmove/backend/internal/audit"
	"github.com/bigmove/backend/internal/delivery"
	"github.com/bigmove/backend/internal/models"
	"github.com/bigmove/backend/internal/options"
	"github.com/bigmove/backend/internal/pricing"
)

type OrderRepository interface {
	Create(ctx context.Context, o *models.Order, capacity int) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, cursor string, limit int64, status models.OrderStatus) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, o *models.Order, from models.OrderStatus, eventType models.EventType) error
}

type Auditor interface {
	Log(record audit.AuditLog)
}

type OrderService struct {
	repo      OrderRepository
	auditor   Auditor
	catalog   options.Catalog
	loc       *time.Location
	now       func() time.Time
	newID     func() string
	capacity  int
	slotTimes []string
}

func NewOrderService(repo OrderRepository, auditor Auditor, loc *time.Location) *OrderService {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderService{
		repo:      repo,
		auditor:   auditor,
		catalog:   options.NewCatalog(),
		loc:       loc,
		now:       time.Now,
		newID:     uuid.NewString,
		capacity:  delivery.SlotCapacity,
		slotTimes: delivery.DefaultSlotTimes,
	}
}

// CreateOrder validates a finished draft and stores it as a pending order.
// Every fee and the total are rebuilt here; client figures are discarded.
func (s *OrderService) CreateOrder(ctx context.Context, d models.OrderDraft) (*models.Order, error) {
	if err := s.validate(d); err != nil {
		return nil, err
	}
	d, err := s.reprice(d)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	o := &models.Order{
		ID:         s.newID(),
		Status:     models.OrderStatusPending,
		Draft:      d,
		TotalPrice: d.PriceDetails.TotalPrice,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, o, s.capacity); err != nil {
		return nil, err
	}

	if s.auditor != nil {
		s.auditor.Log(audit.AuditLog{
			Timestamp: now,
			OrderID:   o.ID,
			NewState:  string(o.Status),
			Endpoint:  "/api/orders",
			Message:   "order created",
		})
	}
	slog.InfoContext(ctx, "order created", "order_id", o.ID, "total", o.TotalPrice, "date", d.DeliveryInfo.Date)
	return o, nil
}

func (s *OrderService) validate(d models.OrderDraft) error {
	if len(d.Items) == 0 {
		return fmt.Errorf("order has no items: %w", apperr.ErrInvalidInput)
	}
	for _, it := range d.Items {
		if it.ID == "" || it.Quantity <= 0 || it.Price < 0 {
			return fmt.Errorf("item %q: %w", it.ID, apperr.ErrInvalidInput)
		}
	}

	info := d.DeliveryInfo
	if info.Date == "" || info.LoadingTime == "" || info.UnloadingTime == "" {
		return fmt.Errorf("delivery info: %w", apperr.ErrStepIncomplete)
	}
	if _, err := models.ParseDeliveryOption(string(info.DeliveryOption)); err != nil {
		return fmt.Errorf("%v: %w", err, apperr.ErrInvalidInput)
	}
	date, err := delivery.ParseDate(info.Date, s.loc)
	if err != nil {
		return err
	}
	now := s.now().In(s.loc)
	if delivery.OptionDisabled(info.DeliveryOption, now) {
		return fmt.Errorf("%s: %w", info.DeliveryOption, apperr.ErrOptionClosed)
	}
	if delivery.IsDateDisabled(info.DeliveryOption, date, now) {
		return fmt.Errorf("%s: %w", info.Date, apperr.ErrDateUnavailable)
	}
	loading, err := delivery.Hour(info.LoadingTime)
	if err != nil {
		return err
	}
	unloading, err := delivery.Hour(info.UnloadingTime)
	if err != nil {
		return err
	}
	if unloading <= loading {
		return fmt.Errorf("unloading %s not after loading %s: %w", info.UnloadingTime, info.LoadingTime, apperr.ErrSlotUnavailable)
	}
	for _, t := range []string{info.LoadingTime, info.UnloadingTime} {
		if !slices.Contains(s.slotTimes, t) {
			return fmt.Errorf("slot %s is not offered: %w", t, apperr.ErrSlotUnavailable)
		}
	}

	if strings.TrimSpace(d.Addresses.FromAddress) == "" || strings.TrimSpace(d.Addresses.ToAddress) == "" {
		return fmt.Errorf("addresses: %w", apperr.ErrStepIncomplete)
	}
	if d.Addresses.Distance < 0 {
		return fmt.Errorf("distance %.1f: %w", d.Addresses.Distance, apperr.ErrInvalidInput)
	}
	return nil
}

// reprice derives the delivery, distance and option fees from the draft's
// choices and recomputes the price breakdown from them.
func (s *OrderService) reprice(d models.OrderDraft) (models.OrderDraft, error) {
	opt, err := models.ParseDeliveryOption(string(d.DeliveryInfo.DeliveryOption))
	if err != nil {
		return d, fmt.Errorf("%v: %w", err, apperr.ErrInvalidInput)
	}
	d.DeliveryInfo.DeliveryOption = opt
	d.DeliveryInfo.DeliveryFee = pricing.DeliveryFee(opt)

	d.Addresses = pricing.ApplyDistance(d.Addresses, d.Addresses.Distance)

	so := d.ServiceOptions
	applied, err := s.catalog.Apply(options.Selection{
		FloorOptionID:    so.FloorOptionID,
		LadderOptionID:   so.LadderOptionID,
		SpecialVehicleID: so.SpecialVehicleID,
	})
	if err != nil {
		return d, err
	}
	d.ServiceOptions = applied

	d.PriceDetails = pricing.Calculate(d)
	return d, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, cursor string, limit int64, status models.OrderStatus) ([]*models.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.repo.List(ctx, cursor, limit, status)
}

// CancelOrder releases the delivery slot of a pending order. Paid orders are
// refunded outside this service and can not be cancelled here.
func (s *OrderService) CancelOrder(ctx context.Context, id string) (*models.Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == models.OrderStatusCancelled {
		return o, nil
	}
	if o.Status != models.OrderStatusPending {
		return nil, fmt.Errorf("order %s is %s: %w", id, o.Status, apperr.ErrInvalidTransition)
	}

	o.Status = models.OrderStatusCancelled
	o.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateStatus(ctx, o, models.OrderStatusPending, models.EventOrderCancelled); err != nil {
		return nil, err
	}

	if s.auditor != nil {
		s.auditor.Log(audit.AuditLog{
			Timestamp: o.UpdatedAt,
			OrderID:   o.ID,
			OldState:  string(models.OrderStatusPending),
			NewState:  string(o.Status),
			Endpoint:  "/api/orders/" + o.ID + "/cancel",
			Message:   "order cancelled",
		})
	}
	slog.InfoContext(ctx, "order cancelled", "order_id", o.ID)
	return o, nil
}
