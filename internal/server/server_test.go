package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigmove/backend/internal/apperr"
	"github.com/bigmove/backend/internal/config"
	"github.com/bigmove/backend/internal/delivery"
	"github.com/bigmove/backend/internal/geo"
	"github.com/bigmove/backend/internal/models"
	"github.com/bigmove/backend/internal/options"
	"github.com/bigmove/backend/internal/payment"
	"github.com/bigmove/backend/internal/service"
)

type fakeItems struct{}

func (fakeItems) ListByCategory(_ context.Context, categoryID string) ([]models.Item, error) {
	if categoryID != "sofa" {
		return []models.Item{}, nil
	}
	return []models.Item{{ID: "sofa-1", CategoryID: "sofa", Name: "3인 소파", Price: 450000}}, nil
}

func (fakeItems) GetDetails(_ context.Context, categoryID, itemID string) (*models.ItemDetail, error) {
	if categoryID != "sofa" || itemID != "sofa-1" {
		return nil, apperr.ErrNotFound
	}
	return &models.ItemDetail{
		Item:    models.Item{ID: "sofa-1", CategoryID: "sofa", Name: "3인 소파"},
		Details: map[string]string{"width": "2100mm"},
	}, nil
}

type fakeSlots struct {
	datesErr error
}

func (f fakeSlots) Dates(_ context.Context, _ models.DeliveryOption) ([]models.AvailableDate, error) {
	if f.datesErr != nil {
		return nil, f.datesErr
	}
	return []models.AvailableDate{{Date: "2026-10-18"}, {Date: "2026-10-19"}}, nil
}

func (f fakeSlots) TimeSlots(_ context.Context, date string, _ models.DeliveryOption) (models.DeliveryTimeSlots, error) {
	if date == "2026-10-16" {
		return models.DeliveryTimeSlots{}, apperr.ErrDateUnavailable
	}
	return models.DeliveryTimeSlots{
		LoadingTimes:   []models.TimeSlot{{Time: "09:00", Available: true, MaxCapacity: 100, RemainingCapacity: 100}},
		UnloadingTimes: []models.TimeSlot{{Time: "12:00", Available: true, MaxCapacity: 100, RemainingCapacity: 100}},
	}, nil
}

type fakeOrders struct {
	orders    map[string]*models.Order
	createErr error
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: make(map[string]*models.Order)}
}

func (f *fakeOrders) CreateOrder(_ context.Context, d models.OrderDraft) (*models.Order, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	o := &models.Order{ID: "order-1", Status: models.OrderStatusPending, Draft: d, TotalPrice: 450000}
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeOrders) GetOrder(_ context.Context, id string) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrders) ListOrders(context.Context, string, int64, models.OrderStatus) ([]*models.Order, error) {
	return nil, nil
}

func (f *fakeOrders) CancelOrder(_ context.Context, id string) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if o.Status != models.OrderStatusPending {
		return nil, apperr.ErrInvalidTransition
	}
	o.Status = models.OrderStatusCancelled
	return o, nil
}

type fakePayments struct{}

func (fakePayments) Confirm(_ context.Context, in payment.ConfirmRequest) (*models.Order, error) {
	if in.Amount != 450000 {
		return nil, apperr.ErrAmountMismatch
	}
	return &models.Order{ID: in.OrderID, Status: models.OrderStatusPaid, PaymentKey: in.PaymentKey, TotalPrice: in.Amount}, nil
}

type fakeDistance struct{}

func (fakeDistance) CalculateDistance(context.Context, string, string) geo.Result {
	return geo.Result{Distance: 12.3, Duration: 20}
}

type fakeSearcher struct{}

func (fakeSearcher) Search(_ context.Context, q string) ([]geo.Place, error) {
	return []geo.Place{{AddressName: q}}, nil
}

type noBookings struct{}

func (noBookings) CountByDate(context.Context, string) (map[string]int, map[string]int, error) {
	return map[string]int{}, map[string]int{}, nil
}

func newTestServer(t *testing.T, slots fakeSlots) (*Server, *fakeOrders) {
	t.Helper()
	now := func() time.Time { return time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC) }
	orders := newFakeOrders()
	checkout := service.NewCheckout(service.CheckoutDeps{
		Creator:  orders,
		Slots:    delivery.NewBookingSource(noBookings{}, time.UTC, now),
		Catalog:  options.NewCatalog(),
		Searcher: fakeSearcher{},
		Distance: fakeDistance{},
	})
	cfg := &config.Config{HTTPPort: "0", Username: "admin", Password: "secret"}
	s := NewServer(cfg, Deps{
		Items:    fakeItems{},
		Slots:    slots,
		Options:  options.NewCatalog(),
		Orders:   orders,
		Payments: fakePayments{},
		Distance: fakeDistance{},
		Checkout: checkout,
	})
	return s, orders
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestAvailableDates(t *testing.T) {
	s, _ := newTestServer(t, fakeSlots{})
	h := s.Router()

	rec := do(t, h, http.MethodGet, "/api/delivery/available-dates?delivery_type=REGULAR&area_code=11", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[datesResponse](t, rec)
	assert.Equal(t, []string{"2026-10-18", "2026-10-19"}, body.Dates)
	assert.Empty(t, body.Message)

	rec = do(t, h, http.MethodGet, "/api/delivery/available-dates", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", decodeBody[errorBody](t, rec).Error)
}

func TestAvailableDatesSameDayClosed(t *testing.T) {
	s, _ := newTestServer(t, fakeSlots{datesErr: apperr.ErrOptionClosed})

	rec := do(t, s.Router(), http.MethodGet, "/api/delivery/available-dates?delivery_type=SAME_DAY", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[datesResponse](t, rec)
	assert.Empty(t, body.Dates)
	assert.Equal(t, delivery.SameDayClosedMessage, body.Message)
}

func TestDeliverySlots(t *testing.T) {
	s, _ := newTestServer(t, fakeSlots{})
	h := s.Router()

	rec := do(t, h, http.MethodGet, "/api/delivery/delivery-slots/NEXT_DAY?date=2026-10-18", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decodeBody[models.DeliveryTimeSlots](t, rec)
	require.Len(t, slots.LoadingTimes, 1)
	assert.Equal(t, "09:00", slots.LoadingTimes[0].Time)

	rec = do(t, h, http.MethodGet, "/api/delivery/delivery-slots/NEXT_DAY", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/delivery/delivery-slots/NEXT_DAY?date=2026-10-16", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "date_unavailable", decodeBody[errorBody](t, rec).Error)

	rec = do(t, h, http.MethodGet, "/api/delivery/delivery-slots/EXPRESS?date=2026-10-18", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestItems(t *testing.T) {
	s, _ := newTestServer(t, fakeSlots{})
	h := s.Router()

	rec := do(t, h, http.MethodGet, "/api/categories/sofa/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.Item](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/api/categories/sofa/items/sofa-1/details", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2100mm", decodeBody[models.ItemDetail](t, rec).Details["width"])

	rec = do(t, h, http.MethodGet, "/api/categories/sofa/items/bed-9/details", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServiceOptions(t *testing.T) {
	s, _ := newTestServer(t, fakeSlots{})
	h := s.Router()

	rec := do(t, h, http.MethodGet, "/api/service-options", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[options.Groups](t, rec).FloorOptions, 5)

	floor, ladder := "floor-2", "ladder-normal"
	rec = do(t, h, http.MethodPost, "/api/service-options/calculate", options.Selection{FloorOptionID: &floor, LadderOptionID: &ladder})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(90000), decodeBody[models.ServiceOptions](t, rec).TotalOptionFee)

	bad := "floor-99"
	rec = do(t, h, http.MethodPost, "/api/service-options/calculate", options.Selection{FloorOptionID: &bad})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrders(t *testing.T) {
	s, orders := newTestServer(t, fakeSlots{})
	h := s.Router()

	rec := do(t, h, http.MethodPost, "/api/orders", models.OrderDraft{Items: []models.OrderItem{{ID: "sofa-1", Quantity: 1, Price: 450000}}})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "order-1", decodeBody[models.Order](t, rec).ID)

	rec = do(t, h, http.MethodGet, "/api/orders/order-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/orders/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeBody[errorBody](t, rec).Error)

	orders.createErr = apperr.ErrSlotUnavailable
	rec = do(t, h, http.MethodPost, "/api/orders", models.OrderDraft{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "slot_unavailable", decodeBody[errorBody](t, rec).Error)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString("{not json"))
	bad := httptest.NewRecorder()
	h.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestListOrdersRequiresAuth(t *testing.T) {
	s, _ := newTestServer(t, fakeSlots{})
	h := s.Router()

	rec := do(t, h, http.MethodGet, "/api/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/orders?limit=5", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/orders?status=shipped", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelOrder(t *testing.T) {
	s, orders := newTestServer(t, fakeSlots{})
	h := s.Router()
	orders.orders["order-7"] = &models.Order{ID: "order-7", Status: models.OrderStatusPending}

	rec := do(t, h, http.MethodPost, "/api/orders/order-7/cancel", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cancel := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/orders/order-7/cancel", nil)
		req.SetBasicAuth("admin", "secret")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec = cancel()
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.OrderStatusCancelled, decodeBody[models.Order](t, rec).Status)

	rec = cancel()
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestConfirmPayment(t *testing.T) {
	s, _ := newTestServer(t, fakeSlots{})
	h := s.Router()

	rec := do(t, h, http.MethodPost, "/payments/confirm", payment.ConfirmRequest{PaymentKey: "pk", OrderID: "order-1", Amount: 450000})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.OrderStatusPaid, decodeBody[models.Order](t, rec).Status)

	rec = do(t, h, http.MethodPost, "/payments/confirm", payment.ConfirmRequest{PaymentKey: "pk", OrderID: "order-1", Amount: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "amount_mismatch", decodeBody[errorBody](t, rec).Error)
}

func TestDistance(t *testing.T) {
	s, _ := newTestServer(t, fakeSlots{})
	h := s.Router()

	rec := do(t, h, http.MethodPost, "/api/distance", distanceRequest{From: "서울", To: "수원"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 12.3, decodeBody[geo.Result](t, rec).Distance)

	rec = do(t, h, http.MethodPost, "/api/distance", distanceRequest{From: "서울"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutRoutes(t *testing.T) {
	s, _ := newTestServer(t, fakeSlots{})
	h := s.Router()

	rec := do(t, h, http.MethodPost, "/api/checkout", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	view := decodeBody[service.SessionView](t, rec)
	require.NotEmpty(t, view.ID)
	base := "/api/checkout/" + view.ID

	rec = do(t, h, http.MethodPatch, base, map[string]interface{}{
		"items": []models.OrderItem{{ID: "sofa-1", Quantity: 2, Price: 1000}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2000), decodeBody[models.OrderDraft](t, rec).PriceDetails.TotalPrice)

	rec = do(t, h, http.MethodGet, base+"/dates?delivery_type=REGULAR", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dates := decodeBody[service.DatesResult](t, rec)
	require.NotEmpty(t, dates.Dates)
	assert.Equal(t, "2026-10-18", dates.Dates[0].Date)

	rec = do(t, h, http.MethodPost, base+"/address/to/search", service.AddressRequest{Query: "수원"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decodeBody[errorBody](t, rec).Error)

	rec = do(t, h, http.MethodPost, base+"/address/middle/search", service.AddressRequest{Query: "수원"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/address/from/search", service.AddressRequest{Query: "서울"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.StepDelivery, decodeBody[service.SessionView](t, rec).Step)

	rec = do(t, h, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
