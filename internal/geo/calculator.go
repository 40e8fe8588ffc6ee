package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"
)

const (
	LinearDistanceMessage = "자동차 이동거리 측정에 실패하여 직선거리로 안내합니다!"
	addressNotFoundFormat = "주소를 찾을 수 없습니다: %s"
	geocodeFailedMessage  = "주소 좌표를 가져오지 못했습니다. 잠시 후 다시 시도해 주세요."
)

type Geocoder interface {
	Geocode(ctx context.Context, address string) (Point, error)
}

type Router interface {
	Directions(ctx context.Context, from, to Point) (Route, error)
}

// Result is always renderable: failures are reported in ErrorMessage.
type Result struct {
	Distance         float64 `json:"distance"`
	Duration         int     `json:"duration"`
	IsLinearDistance bool    `json:"isLinearDistance"`
	ErrorMessage     string  `json:"errorMessage,omitempty"`
	From             *Point  `json:"from,omitempty"`
	To               *Point  `json:"to,omitempty"`
}

type Calculator struct {
	geocoder Geocoder
	router   Router
	policy   RetryPolicy
}

func NewCalculator(geocoder Geocoder, router Router, policy RetryPolicy) *Calculator {
	return &Calculator{geocoder: geocoder, router: router, policy: policy}
}

// CalculateDistance measures the driving distance between two addresses,
// falling back to the straight line when the route lookup keeps failing.
func (c *Calculator) CalculateDistance(ctx context.Context, from, to string) Result {
	var fromPt, toPt Point

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := c.geocoder.Geocode(gctx, from)
		if err != nil {
			return geocodeError(from, err)
		}
		fromPt = p
		return nil
	})
	g.Go(func() error {
		p, err := c.geocoder.Geocode(gctx, to)
		if err != nil {
			return geocodeError(to, err)
		}
		toPt = p
		return nil
	})
	if err := g.Wait(); err != nil {
		slog.WarnContext(ctx, "geocoding failed", "from", from, "to", to, "error", err)
		return Result{ErrorMessage: userMessage(err)}
	}

	var route Route
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		r, err := c.router.Directions(ctx, fromPt, toPt)
		if err != nil {
			slog.WarnContext(ctx, "directions attempt failed", "error", err)
			return err
		}
		route = r
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "directions failed, using straight line", "error", err)
		return Result{
			Distance:         RoundKm(Haversine(fromPt, toPt)),
			IsLinearDistance: true,
			ErrorMessage:     LinearDistanceMessage,
			From:             &fromPt,
			To:               &toPt,
		}
	}

	return Result{
		Distance: RoundKm(route.DistanceMeters / 1000),
		Duration: int(math.Round(route.DurationSeconds / 60)),
		From:     &fromPt,
		To:       &toPt,
	}
}

type addressError struct {
	address string
	err     error
}

func (e *addressError) Error() string { return fmt.Sprintf("geocode %q: %v", e.address, e.err) }
func (e *addressError) Unwrap() error { return e.err }

func geocodeError(address string, err error) error {
	return &addressError{address: address, err: err}
}

func userMessage(err error) string {
	var ae *addressError
	if errors.As(err, &ae) && errors.Is(err, ErrAddressNotFound) {
		return fmt.Sprintf(addressNotFoundFormat, ae.address)
	}
	return geocodeFailedMessage
}
