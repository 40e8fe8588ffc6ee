package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bigmove/backend/internal/address"
	"github.com/bigmove/backend/internal/apperr"
	"github.com/bigmove/backend/internal/delivery"
	"github.com/bigmove/backend/internal/draft"
	"github.com/bigmove/backend/internal/models"
	"github.com/bigmove/backend/internal/options"
)

// Checkout steps in the order the customer walks through them.
const (
	StepItems = iota + 1
	StepDelivery
	StepAddress
	StepOptions
	StepSummary
)

// Session is one customer's flow: the persisted draft plus the step state
// that only lives in memory.
type Session struct {
	ID      string
	Store   *draft.Store
	Address *address.Step
	Slots   *delivery.Resolver

	mu       sync.Mutex
	delivery delivery.Selection
	lastSeen time.Time
}

func (s *Session) Delivery() delivery.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delivery
}

type SessionView struct {
	ID       string             `json:"id"`
	Step     int                `json:"step"`
	Draft    models.OrderDraft  `json:"draft"`
	Delivery delivery.Selection `json:"delivery"`
	Address  address.View       `json:"address"`
	Loading  bool               `json:"loading"`
	Error    string             `json:"error,omitempty"`

	TimeSlots models.DeliveryTimeSlots `json:"time_slots"`
	SlotError string                   `json:"slot_error,omitempty"`
}

func (s *Session) View() SessionView {
	v := SessionView{
		ID:        s.ID,
		Step:      s.Store.Step(),
		Draft:     s.Store.Snapshot(),
		Delivery:  s.Delivery(),
		Address:   s.Address.View(),
		Loading:   s.Store.Loading(),
		Error:     s.Store.Err(),
		TimeSlots: s.Slots.Current(),
	}
	if err := s.Slots.LastError(); err != nil {
		v.SlotError = apperr.Message(err)
	}
	return v
}

type DatesResult struct {
	Dates   []models.AvailableDate `json:"dates"`
	Message string                 `json:"message"`
}

type DeliveryRequest struct {
	Option        string `json:"delivery_option"`
	Date          string `json:"date"`
	LoadingTime   string `json:"loading_time"`
	UnloadingTime string `json:"unloading_time"`
}

type AddressRequest struct {
	Query   string `json:"query"`
	Address string `json:"address"`
	Detail  string `json:"detail"`
}

type Checkout struct {
	persister draft.Persister
	creator   draft.OrderCreator
	source    delivery.SlotSource
	catalog   options.Catalog
	searcher  address.Searcher
	calc      address.DistanceCalculator
	idleTTL   time.Duration
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

type CheckoutDeps struct {
	Persister draft.Persister
	Creator   draft.OrderCreator
	Slots     delivery.SlotSource
	Catalog   options.Catalog
	Searcher  address.Searcher
	Distance  address.DistanceCalculator
	IdleTTL   time.Duration
}

func NewCheckout(deps CheckoutDeps) *Checkout {
	if deps.IdleTTL <= 0 {
		deps.IdleTTL = time.Hour
	}
	return &Checkout{
		persister: deps.Persister,
		creator:   deps.Creator,
		source:    deps.Slots,
		catalog:   deps.Catalog,
		searcher:  deps.Searcher,
		calc:      deps.Distance,
		idleTTL:   deps.IdleTTL,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
}

func (c *Checkout) newSession(id string, store *draft.Store) *Session {
	return &Session{
		ID:       id,
		Store:    store,
		Address:  address.NewStep(c.searcher, c.calc),
		Slots:    delivery.NewResolver(c.source, c.now),
		delivery: delivery.Selection{Option: store.Snapshot().DeliveryInfo.DeliveryOption},
		lastSeen: c.now(),
	}
}

// Start opens a new flow with an empty draft.
func (c *Checkout) Start(ctx context.Context) (*Session, error) {
	id := uuid.NewString()
	store := draft.New(id, c.persister, c.creator)
	if _, err := store.Update(ctx, draft.Patch{}); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	s := c.newSession(id, store)

	c.mu.Lock()
	c.sessions[id] = s
	c.mu.Unlock()
	slog.InfoContext(ctx, "checkout started", "session", id)
	return s, nil
}

// Get returns a live session, restoring the draft from storage when the
// process no longer holds it.
func (c *Checkout) Get(ctx context.Context, id string) (*Session, error) {
	c.mu.Lock()
	s, ok := c.sessions[id]
	if ok {
		s.mu.Lock()
		s.lastSeen = c.now()
		s.mu.Unlock()
	}
	c.mu.Unlock()
	if ok {
		return s, nil
	}

	if c.persister == nil {
		return nil, fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	d, err := c.persister.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}
	if d == nil {
		return nil, fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	restored := c.newSession(id, draft.NewFrom(id, *d, c.persister, c.creator))

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.sessions[id]; ok {
		return existing, nil
	}
	c.sessions[id] = restored
	slog.InfoContext(ctx, "checkout restored", "session", id)
	return restored, nil
}

func (c *Checkout) Patch(ctx context.Context, id string, p draft.Patch) (models.OrderDraft, error) {
	s, err := c.Get(ctx, id)
	if err != nil {
		return models.OrderDraft{}, err
	}
	d, err := s.Store.Update(ctx, p)
	if err != nil {
		slog.WarnContext(ctx, "draft updated but not persisted", "session", id, "error", err)
	}
	return d, nil
}

// Delete resets the draft and forgets the session.
func (c *Checkout) Delete(ctx context.Context, id string) error {
	s, err := c.Get(ctx, id)
	if err != nil {
		return err
	}
	_ = s.Store.Reset(ctx)

	c.mu.Lock()
	delete(c.sessions, id)
	c.mu.Unlock()

	if c.persister != nil {
		if err := c.persister.Delete(ctx, id); err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
		}
	}
	return nil
}

// Dates selects the delivery option and lists its dates. A closed same-day
// option is not an error: it yields no dates and the closing message.
func (c *Checkout) Dates(ctx context.Context, id, option string) (DatesResult, error) {
	s, err := c.Get(ctx, id)
	if err != nil {
		return DatesResult{}, err
	}
	opt, err := models.ParseDeliveryOption(option)
	if err != nil {
		return DatesResult{}, fmt.Errorf("%v: %w", err, apperr.ErrInvalidInput)
	}

	s.mu.Lock()
	s.delivery.SelectOption(opt)
	s.mu.Unlock()
	s.Store.SetStep(StepDelivery)

	dates, err := s.Slots.Dates(ctx, opt)
	if errors.Is(err, apperr.ErrOptionClosed) {
		return DatesResult{Dates: []models.AvailableDate{}, Message: delivery.SameDayClosedMessage}, nil
	}
	if err != nil {
		return DatesResult{}, err
	}
	return DatesResult{Dates: dates}, nil
}

// Slots selects a date for the session's option and returns its time slots.
func (c *Checkout) Slots(ctx context.Context, id, date string) (models.DeliveryTimeSlots, error) {
	s, err := c.Get(ctx, id)
	if err != nil {
		return models.DeliveryTimeSlots{}, err
	}

	s.mu.Lock()
	opt := s.delivery.Option
	s.mu.Unlock()
	if opt == "" {
		return models.DeliveryTimeSlots{}, fmt.Errorf("no delivery option chosen: %w", apperr.ErrStepIncomplete)
	}

	slots, err := s.Slots.TimeSlots(ctx, date, opt)
	if err != nil {
		return slots, err
	}
	s.mu.Lock()
	s.delivery.SelectDate(date)
	s.mu.Unlock()
	return slots, nil
}

// SetDelivery applies a full date page choice and writes it into the draft.
func (c *Checkout) SetDelivery(ctx context.Context, id string, req DeliveryRequest) (models.OrderDraft, error) {
	s, err := c.Get(ctx, id)
	if err != nil {
		return models.OrderDraft{}, err
	}
	opt, err := models.ParseDeliveryOption(req.Option)
	if err != nil {
		return models.OrderDraft{}, fmt.Errorf("%v: %w", err, apperr.ErrInvalidInput)
	}
	slots, err := s.Slots.TimeSlots(ctx, req.Date, opt)
	if err != nil {
		return models.OrderDraft{}, err
	}

	var sel delivery.Selection
	sel.SelectOption(opt)
	sel.SelectDate(req.Date)
	if err := sel.SelectLoading(req.LoadingTime, slots); err != nil {
		return models.OrderDraft{}, err
	}
	if err := sel.SelectUnloading(req.UnloadingTime, slots); err != nil {
		return models.OrderDraft{}, err
	}
	info, err := sel.DeliveryInfo()
	if err != nil {
		return models.OrderDraft{}, err
	}

	s.mu.Lock()
	s.delivery = sel
	s.mu.Unlock()

	d, err := s.Store.Update(ctx, draft.Patch{DeliveryInfo: &info})
	if err != nil {
		slog.WarnContext(ctx, "draft updated but not persisted", "session", id, "error", err)
	}
	s.Store.SetStep(StepAddress)
	return d, nil
}

// Address runs one address step action: search, select, detail, complete or
// reset. Once both sides are complete the draft gets the addresses and the
// distance fee; a reset removes them again.
func (c *Checkout) Address(ctx context.Context, id string, side address.Side, action string, req AddressRequest) (address.View, error) {
	s, err := c.Get(ctx, id)
	if err != nil {
		return address.View{}, err
	}
	step := s.Address

	switch action {
	case "search":
		if _, err := step.Search(ctx, side, req.Query); err != nil {
			return address.View{}, err
		}
	case "select":
		if err := step.Select(side, req.Address); err != nil {
			return address.View{}, err
		}
	case "detail":
		if err := step.EnterDetail(side, req.Detail); err != nil {
			return address.View{}, err
		}
	case "complete":
		if _, err := step.Complete(ctx, side); err != nil {
			return address.View{}, err
		}
		if step.Ready() {
			a, err := step.Addresses()
			if err != nil {
				return address.View{}, err
			}
			if _, err := s.Store.Update(ctx, draft.Patch{Addresses: &a}); err != nil {
				slog.WarnContext(ctx, "draft updated but not persisted", "session", id, "error", err)
			}
			s.Store.SetStep(StepOptions)
		}
	case "reset":
		step.Reset(side)
		a := clearSide(s.Store.Snapshot().Addresses, side)
		if _, err := s.Store.Update(ctx, draft.Patch{Addresses: &a}); err != nil {
			slog.WarnContext(ctx, "draft updated but not persisted", "session", id, "error", err)
		}
		s.Store.SetStep(StepAddress)
	default:
		return address.View{}, fmt.Errorf("address action %q: %w", action, apperr.ErrInvalidInput)
	}
	return step.View(), nil
}

// clearSide drops one side and every distance derived field, keeping the
// other side's text.
func clearSide(a models.Addresses, side address.Side) models.Addresses {
	if side == address.SideFrom {
		a.FromAddress, a.FromDetailAddress = "", ""
	} else {
		a.ToAddress, a.ToDetailAddress = "", ""
	}
	a.Distance = 0
	a.AdditionalDistance = 0
	a.DistanceFee = 0
	return a
}

func (c *Checkout) SetOptions(ctx context.Context, id string, sel options.Selection) (models.OrderDraft, error) {
	s, err := c.Get(ctx, id)
	if err != nil {
		return models.OrderDraft{}, err
	}
	applied, err := c.catalog.Apply(sel)
	if err != nil {
		return models.OrderDraft{}, err
	}
	d, err := s.Store.Update(ctx, draft.Patch{ServiceOptions: &applied})
	if err != nil {
		slog.WarnContext(ctx, "draft updated but not persisted", "session", id, "error", err)
	}
	s.Store.SetStep(StepSummary)
	return d, nil
}

// Submit turns the draft into an order. A failure stays visible on the
// session and is not retried. A booked date is refetched on its next view.
func (c *Checkout) Submit(ctx context.Context, id string) (*models.Order, error) {
	s, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	o, err := s.Store.CreateOrder(ctx)
	if err != nil {
		return nil, err
	}
	info := o.Draft.DeliveryInfo
	s.Slots.Forget(info.Date, info.DeliveryOption)
	return o, nil
}

// Evict drops sessions idle for longer than the idle TTL. Their drafts stay
// in storage and are restored on the next request. Live sessions lose their
// expired slot entries.
func (c *Checkout) Evict() int {
	cutoff := c.now().Add(-c.idleTTL)
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for id, s := range c.sessions {
		s.mu.Lock()
		idle := s.lastSeen.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(c.sessions, id)
			n++
			continue
		}
		s.Slots.Purge()
	}
	return n
}

func (c *Checkout) StartEviction(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := c.Evict(); n > 0 {
				slog.Debug("evicted idle checkout sessions", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
