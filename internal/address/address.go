// Package address drives the pickup and drop-off entry step.
package address

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bigmove/backend/internal/apperr"
	"github.com/bigmove/backend/internal/geo"
	"github.com/bigmove/backend/internal/models"
	"github.com/bigmove/backend/internal/pricing"
)

type State string

const (
	StateEmpty         State = "EMPTY"
	StateSearching     State = "SEARCHING"
	StateSelected      State = "SELECTED"
	StateDetailEntered State = "DETAIL_ENTERED"
	StateCompleted     State = "COMPLETED"
)

type Side string

const (
	SideFrom Side = "from"
	SideTo   Side = "to"
)

func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(s)) {
	case SideFrom:
		return SideFrom, nil
	case SideTo:
		return SideTo, nil
	}
	return "", fmt.Errorf("address side %q: %w", s, apperr.ErrInvalidInput)
}

type Searcher interface {
	Search(ctx context.Context, query string) ([]geo.Place, error)
}

type DistanceCalculator interface {
	CalculateDistance(ctx context.Context, from, to string) geo.Result
}

type Entry struct {
	State   State       `json:"state"`
	Query   string      `json:"query,omitempty"`
	Results []geo.Place `json:"results,omitempty"`
	Address string      `json:"address,omitempty"`
	Detail  string      `json:"detail,omitempty"`
}

type View struct {
	From     Entry       `json:"from"`
	To       Entry       `json:"to"`
	Distance *geo.Result `json:"distance,omitempty"`
	Fee      int64       `json:"distance_fee"`
	Ready    bool        `json:"ready"`
}

// Step holds both sides of the address form. "to" opens only once "from" is
// completed, and distance is measured only when both are.
type Step struct {
	searcher Searcher
	calc     DistanceCalculator

	mu       sync.Mutex
	from     Entry
	to       Entry
	distance *geo.Result
}

func NewStep(searcher Searcher, calc DistanceCalculator) *Step {
	return &Step{
		searcher: searcher,
		calc:     calc,
		from:     Entry{State: StateEmpty},
		to:       Entry{State: StateEmpty},
	}
}

func (s *Step) entry(side Side) *Entry {
	if side == SideFrom {
		return &s.from
	}
	return &s.to
}

func (s *Step) enterable(side Side) error {
	if side == SideTo && s.from.State != StateCompleted {
		return fmt.Errorf("from address not completed: %w", apperr.ErrInvalidTransition)
	}
	return nil
}

func transition(e *Entry, allowed []State, next State) error {
	for _, st := range allowed {
		if e.State == st {
			e.State = next
			return nil
		}
	}
	return fmt.Errorf("%s -> %s: %w", e.State, next, apperr.ErrInvalidTransition)
}

// Search runs an address lookup. A side may search again until it is
// completed.
func (s *Step) Search(ctx context.Context, side Side, query string) ([]geo.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty address query: %w", apperr.ErrInvalidInput)
	}

	s.mu.Lock()
	if err := s.enterable(side); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	e := s.entry(side)
	if err := transition(e, []State{StateEmpty, StateSearching, StateSelected, StateDetailEntered}, StateSearching); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	e.Query = query
	e.Address = ""
	e.Detail = ""
	s.mu.Unlock()

	places, err := s.searcher.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
	}

	s.mu.Lock()
	if e.State == StateSearching && e.Query == query {
		e.Results = places
	}
	s.mu.Unlock()
	return places, nil
}

func (s *Step) Select(side Side, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("empty address: %w", apperr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enterable(side); err != nil {
		return err
	}
	e := s.entry(side)
	if err := transition(e, []State{StateSearching, StateSelected, StateDetailEntered}, StateSelected); err != nil {
		return err
	}
	e.Address = address
	e.Detail = ""
	e.Results = nil
	return nil
}

// EnterDetail accepts an empty detail for addresses without unit numbers.
func (s *Step) EnterDetail(side Side, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enterable(side); err != nil {
		return err
	}
	e := s.entry(side)
	if err := transition(e, []State{StateSelected, StateDetailEntered}, StateDetailEntered); err != nil {
		return err
	}
	e.Detail = strings.TrimSpace(detail)
	return nil
}

// Complete finishes one side. When both sides are complete the distance is
// measured.
func (s *Step) Complete(ctx context.Context, side Side) (View, error) {
	s.mu.Lock()
	if err := s.enterable(side); err != nil {
		s.mu.Unlock()
		return View{}, err
	}
	if err := transition(s.entry(side), []State{StateDetailEntered}, StateCompleted); err != nil {
		s.mu.Unlock()
		return View{}, err
	}
	both := s.from.State == StateCompleted && s.to.State == StateCompleted
	from, to := s.from.Address, s.to.Address
	s.mu.Unlock()

	if both {
		res := s.calc.CalculateDistance(ctx, from, to)
		s.mu.Lock()
		if s.from.State == StateCompleted && s.to.State == StateCompleted &&
			s.from.Address == from && s.to.Address == to {
			s.distance = &res
		}
		s.mu.Unlock()
	}
	return s.View(), nil
}

// Reset returns one side to EMPTY and drops the measured distance. The other
// side keeps its entry.
func (s *Step) Reset(side Side) View {
	s.mu.Lock()
	*s.entry(side) = Entry{State: StateEmpty}
	s.distance = nil
	s.mu.Unlock()
	return s.View()
}

func (s *Step) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready()
}

func (s *Step) ready() bool {
	return s.from.State == StateCompleted && s.to.State == StateCompleted && s.distance != nil
}

func (s *Step) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{From: s.from, To: s.to, Ready: s.ready()}
	if s.distance != nil {
		d := *s.distance
		v.Distance = &d
		v.Fee = pricing.DistanceFee(d.Distance)
	}
	return v
}

// Addresses renders the draft section once both sides are complete and the
// distance is known.
func (s *Step) Addresses() (models.Addresses, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready() {
		return models.Addresses{}, fmt.Errorf("address step: %w", apperr.ErrStepIncomplete)
	}
	a := models.Addresses{
		FromAddress:       s.from.Address,
		FromDetailAddress: s.from.Detail,
		ToAddress:         s.to.Address,
		ToDetailAddress:   s.to.Detail,
	}
	return pricing.ApplyDistance(a, s.distance.Distance), nil
}
