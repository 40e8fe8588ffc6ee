// Package draft keeps the order document a customer builds up step by step.
//
// Every mutation goes through Store.Update, which merges the patch and then
// rederives the price breakdown from the merged draft. Totals are never
// patched incrementally.
package draft

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/bigmove/backend/internal/models"
	"github.com/bigmove/backend/internal/pricing"
)

const createOrderFailed = "주문 생성 중 오류가 발생했습니다."

// Patch is a partial update. Nil sections are left untouched; a present
// section replaces the stored one as a whole.
type Patch struct {
	Items          *[]models.OrderItem    `json:"items,omitempty"`
	DeliveryInfo   *models.DeliveryInfo   `json:"delivery_info,omitempty"`
	Addresses      *models.Addresses      `json:"addresses,omitempty"`
	ServiceOptions *models.ServiceOptions `json:"service_options,omitempty"`
}

type Persister interface {
	Save(ctx context.Context, key string, d models.OrderDraft) error
	Load(ctx context.Context, key string) (*models.OrderDraft, error)
	Delete(ctx context.Context, key string) error
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, d models.OrderDraft) (*models.Order, error)
}

type Store struct {
	mu        sync.RWMutex
	key       string
	step      int
	data      models.OrderDraft
	loading   bool
	err       string
	persister Persister
	creator   OrderCreator
}

// Initial returns the empty draft a new flow starts from.
func Initial() models.OrderDraft {
	return models.OrderDraft{
		Items: []models.OrderItem{},
		DeliveryInfo: models.DeliveryInfo{
			DeliveryOption: models.DeliveryRegular,
		},
		Addresses: models.Addresses{
			BaseDistance: pricing.BaseDistanceKm,
		},
	}
}

func New(key string, p Persister, c OrderCreator) *Store {
	return &Store{
		key:       key,
		step:      1,
		data:      Initial(),
		persister: p,
		creator:   c,
	}
}

// Restore loads a persisted draft for key, or starts an empty one.
func Restore(ctx context.Context, key string, p Persister, c OrderCreator) (*Store, error) {
	s := New(key, p, c)
	if p == nil {
		return s, nil
	}
	d, err := p.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if d != nil {
		return NewFrom(key, *d, p, c), nil
	}
	return s, nil
}

// NewFrom wraps an existing draft, rederiving its price details.
func NewFrom(key string, d models.OrderDraft, p Persister, c OrderCreator) *Store {
	s := New(key, p, c)
	s.data = clone(d)
	s.data.PriceDetails = pricing.Calculate(s.data)
	return s
}

func (s *Store) Key() string {
	return s.key
}

func (s *Store) SetStep(step int) {
	s.mu.Lock()
	s.step = step
	s.mu.Unlock()
}

func (s *Store) Step() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.step
}

// Err is the message of the last failed CreateOrder, empty otherwise.
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) Snapshot() models.OrderDraft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.data)
}

// Update merges patch into the draft and recomputes the price details.
// The returned error only reports a persistence failure; the in-memory
// draft is updated regardless.
func (s *Store) Update(ctx context.Context, patch Patch) (models.OrderDraft, error) {
	s.mu.Lock()
	merged := clone(s.data)
	if patch.Items != nil {
		merged.Items = append([]models.OrderItem{}, (*patch.Items)...)
	}
	if patch.DeliveryInfo != nil {
		merged.DeliveryInfo = *patch.DeliveryInfo
	}
	if patch.Addresses != nil {
		merged.Addresses = *patch.Addresses
	}
	if patch.ServiceOptions != nil {
		merged.ServiceOptions = *patch.ServiceOptions
	}
	merged.PriceDetails = pricing.Calculate(merged)
	s.data = merged
	out := clone(merged)
	s.mu.Unlock()

	return out, s.persist(ctx, out)
}

// CalculateTotalPrice is a pure function of the draft.
func CalculateTotalPrice(d models.OrderDraft) int64 {
	return pricing.Calculate(d).TotalPrice
}

func (s *Store) CalculateTotalPrice() int64 {
	return CalculateTotalPrice(s.Snapshot())
}

// CreateOrder submits the whole draft. A failure is kept in Err and returned;
// there is no retry.
func (s *Store) CreateOrder(ctx context.Context) (*models.Order, error) {
	if s.creator == nil {
		return nil, errors.New("order creator is not configured")
	}

	s.mu.Lock()
	s.loading = true
	s.err = ""
	d := clone(s.data)
	s.mu.Unlock()

	order, err := s.creator.CreateOrder(ctx, d)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.err = err.Error()
		if s.err == "" {
			s.err = createOrderFailed
		}
	}
	s.mu.Unlock()

	if err != nil {
		slog.ErrorContext(ctx, "create order failed", "session", s.key, "error", err)
		return nil, err
	}
	return order, nil
}

// Reset restores the initial draft and returns to the first step.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.data = Initial()
	s.step = 1
	s.err = ""
	out := clone(s.data)
	s.mu.Unlock()

	return s.persist(ctx, out)
}

func (s *Store) persist(ctx context.Context, d models.OrderDraft) error {
	if s.persister == nil {
		return nil
	}
	if err := s.persister.Save(ctx, s.key, d); err != nil {
		slog.WarnContext(ctx, "persist draft failed", "session", s.key, "error", err)
		return err
	}
	return nil
}

func clone(d models.OrderDraft) models.OrderDraft {
	out := d
	out.Items = append([]models.OrderItem{}, d.Items...)
	return out
}
