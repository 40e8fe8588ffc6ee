package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bigmove/backend/internal/apperr"
	"github.com/bigmove/backend/internal/models"
)

func (s *IntegrationSuite) TestCreateOrderWritesBookingAndTask() {
	ctx := context.Background()
	o := s.newOrder(regularDate(), "09:00", "12:00")

	s.Require().NoError(s.orders.Create(ctx, o, 100))

	got, err := s.orders.GetByID(ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusPending, got.Status)
	s.Equal(int64(45000), got.TotalPrice)
	s.Equal("수원", got.Draft.Addresses.ToAddress)

	loading, unloading, err := s.bookings.CountByDate(ctx, o.Draft.DeliveryInfo.Date)
	s.Require().NoError(err)
	s.Equal(1, loading["09:00"])
	s.Equal(1, unloading["12:00"])

	tasks, err := s.tasks.GetPendingTasks(ctx, 10, 3)
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	var ev models.OrderEvent
	s.Require().NoError(json.Unmarshal(tasks[0].Payload, &ev))
	s.Equal(models.EventOrderCreated, ev.Type)
	s.Equal(o.ID, ev.OrderID)
}

func (s *IntegrationSuite) TestCreateOrderRespectsCapacity() {
	ctx := context.Background()
	date := regularDate()

	s.Require().NoError(s.orders.Create(ctx, s.newOrder(date, "09:00", "12:00"), 1))

	err := s.orders.Create(ctx, s.newOrder(date, "09:00", "15:00"), 1)
	s.ErrorIs(err, apperr.ErrSlotUnavailable)

	s.Require().NoError(s.orders.Create(ctx, s.newOrder(date, "12:00", "15:00"), 1))

	loading, _, err := s.bookings.CountByDate(ctx, date)
	s.Require().NoError(err)
	s.Equal(1, loading["09:00"])
	s.Equal(1, loading["12:00"])
}

func (s *IntegrationSuite) TestUpdateStatus() {
	ctx := context.Background()
	o := s.newOrder(regularDate(), "09:00", "12:00")
	s.Require().NoError(s.orders.Create(ctx, o, 100))

	o.Status = models.OrderStatusPaid
	o.PaymentKey = "tgen_2026"
	o.UpdatedAt = time.Now().UTC()
	s.Require().NoError(s.orders.UpdateStatus(ctx, o, models.OrderStatusPending, models.EventOrderPaid))

	err := s.orders.UpdateStatus(ctx, o, models.OrderStatusPending, models.EventOrderPaid)
	s.ErrorIs(err, apperr.ErrInvalidTransition)

	got, err := s.orders.GetByID(ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusPaid, got.Status)
	s.Equal("tgen_2026", got.PaymentKey)

	tasks, err := s.tasks.GetPendingTasks(ctx, 10, 3)
	s.Require().NoError(err)
	s.Len(tasks, 2)

	_, err = s.orders.GetByID(ctx, "missing")
	s.ErrorIs(err, apperr.ErrNotFound)
}

func (s *IntegrationSuite) TestCancelledOrdersFreeTheirSlot() {
	ctx := context.Background()
	date := regularDate()
	o := s.newOrder(date, "15:00", "18:00")
	s.Require().NoError(s.orders.Create(ctx, o, 1))

	o.Status = models.OrderStatusCancelled
	o.UpdatedAt = time.Now().UTC()
	s.Require().NoError(s.orders.UpdateStatus(ctx, o, models.OrderStatusPending, models.EventOrderCancelled))

	loading, _, err := s.bookings.CountByDate(ctx, date)
	s.Require().NoError(err)
	s.Zero(loading["15:00"])
	s.NoError(s.orders.Create(ctx, s.newOrder(date, "15:00", "18:00"), 1))
}

func (s *IntegrationSuite) TestItems() {
	resp, body := s.doRequest(http.MethodGet, "/api/categories/sofa/items", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	var items []models.Item
	s.Require().NoError(json.Unmarshal(body, &items))
	s.Require().NotEmpty(items)
	s.Equal("sofa", items[0].CategoryID)

	resp, body = s.doRequest(http.MethodGet, "/api/categories/sofa/items/sofa-3/details", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	var detail models.ItemDetail
	s.Require().NoError(json.Unmarshal(body, &detail))
	s.Equal("60kg", detail.Details["weight"])

	resp, _ = s.doRequest(http.MethodGet, "/api/categories/sofa/items/bed-queen/details", nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *IntegrationSuite) TestCreateAndListOrdersOverHTTP() {
	o := s.newOrder(regularDate(), "12:00", "18:00")

	resp, body := s.doRequest(http.MethodPost, "/api/orders", o.Draft)
	s.Require().Equal(http.StatusCreated, resp.StatusCode, string(body))
	var created models.Order
	s.Require().NoError(json.Unmarshal(body, &created))
	s.Equal(int64(45000), created.TotalPrice)

	resp, body = s.doRequest(http.MethodGet, "/api/delivery/delivery-slots/REGULAR?date="+o.Draft.DeliveryInfo.Date, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var slots models.DeliveryTimeSlots
	s.Require().NoError(json.Unmarshal(body, &slots))
	for _, sl := range slots.LoadingTimes {
		if sl.Time == "12:00" {
			s.Equal(1, sl.CurrentBookings)
			s.Equal(99, sl.RemainingCapacity)
		}
	}

	resp, body = s.doRequest(http.MethodGet, "/api/orders?limit=10&status=pending", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	var orders []models.Order
	s.Require().NoError(json.Unmarshal(body, &orders))
	s.Len(orders, 1)
	s.Equal(created.ID, orders[0].ID)
}
