package models

import (
	"fmt"
	"strings"
	"time"
)

type DeliveryOption string

const (
	DeliverySameDay DeliveryOption = "same-day"
	DeliveryNextDay DeliveryOption = "next-day"
	DeliveryRegular DeliveryOption = "regular"
)

// ParseDeliveryOption accepts both the draft form ("same-day") and the
// calendar form ("SAME_DAY").
func ParseDeliveryOption(s string) (DeliveryOption, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "-")) {
	case string(DeliverySameDay):
		return DeliverySameDay, nil
	case string(DeliveryNextDay):
		return DeliveryNextDay, nil
	case string(DeliveryRegular):
		return DeliveryRegular, nil
	}
	return "", fmt.Errorf("unknown delivery option %q", s)
}

// Type returns the upper-case calendar name used by the date page.
func (o DeliveryOption) Type() string {
	return strings.ToUpper(strings.ReplaceAll(string(o), "-", "_"))
}

type OrderItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Price    int64  `json:"price"`
}

type AdditionalFees struct {
	DeliveryFee int64 `json:"deliveryFee"`
	DistanceFee int64 `json:"distanceFee"`
	ServiceFee  int64 `json:"serviceFee"`
}

type PriceDetails struct {
	BasePrice      int64          `json:"basePrice"`
	AdditionalFees AdditionalFees `json:"additionalFees"`
	TotalPrice     int64          `json:"totalPrice"`
}

type DeliveryInfo struct {
	Date           string         `json:"date"`
	LoadingTime    string         `json:"loading_time"`
	UnloadingTime  string         `json:"unloading_time"`
	DeliveryOption DeliveryOption `json:"delivery_option"`
	DeliveryFee    int64          `json:"delivery_fee"`
}

type Addresses struct {
	FromAddress        string  `json:"from_address"`
	FromDetailAddress  string  `json:"from_detail_address"`
	ToAddress          string  `json:"to_address"`
	ToDetailAddress    string  `json:"to_detail_address"`
	Distance           float64 `json:"distance"`
	BaseDistance       float64 `json:"base_distance"`
	AdditionalDistance float64 `json:"additional_distance"`
	DistanceFee        int64   `json:"distance_fee"`
}

type ServiceOptions struct {
	FloorOptionID   *string `json:"floor_option_id"`
	FloorOptionName *string `json:"floor_option_name"`
	FloorOptionFee  int64   `json:"floor_option_fee"`

	LadderOptionID   *string `json:"ladder_option_id"`
	LadderOptionName *string `json:"ladder_option_name"`
	LadderOptionFee  int64   `json:"ladder_option_fee"`

	SpecialVehicleID   *string `json:"special_vehicle_id"`
	SpecialVehicleName *string `json:"special_vehicle_name"`
	SpecialVehicleFee  int64   `json:"special_vehicle_fee"`

	TotalOptionFee int64 `json:"total_option_fee"`
}

type OrderDraft struct {
	Items          []OrderItem    `json:"items"`
	PriceDetails   PriceDetails   `json:"price_details"`
	DeliveryInfo   DeliveryInfo   `json:"delivery_info"`
	Addresses      Addresses      `json:"addresses"`
	ServiceOptions ServiceOptions `json:"service_options"`
}

type TimeSlot struct {
	Time              string `json:"time"`
	Available         bool   `json:"available"`
	CurrentBookings   int    `json:"current_bookings"`
	MaxCapacity       int    `json:"max_capacity"`
	RemainingCapacity int    `json:"remaining_capacity"`
}

type DeliveryTimeSlots struct {
	LoadingTimes   []TimeSlot `json:"loading_times"`
	UnloadingTimes []TimeSlot `json:"unloading_times"`
}

type Surcharge struct {
	Label         string `json:"label"`
	AdditionalFee int64  `json:"additionalFee"`
}

type AvailableDate struct {
	Date       string      `json:"date"`
	TimeSlots  []TimeSlot  `json:"timeSlots"`
	Surcharges []Surcharge `json:"surcharges,omitempty"`
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID         string      `json:"id"`
	Status     OrderStatus `json:"status"`
	Draft      OrderDraft  `json:"order_data"`
	TotalPrice int64       `json:"total_price"`
	PaymentKey string      `json:"payment_key,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (o *Order) UpdateStatus(newStatus OrderStatus) {
	o.Status = newStatus
	o.UpdatedAt = time.Now().UTC()
}

type Booking struct {
	OrderID       string `json:"order_id"`
	Date          string `json:"date"`
	LoadingTime   string `json:"loading_time"`
	UnloadingTime string `json:"unloading_time"`
}

type Item struct {
	ID          string `json:"id"`
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
}

type ItemDetail struct {
	Item
	Details map[string]string `json:"details"`
}

type EventType string

const (
	EventOrderCreated   EventType = "order.created"
	EventOrderPaid      EventType = "order.paid"
	EventOrderCancelled EventType = "order.cancelled"
)

// OrderEvent is the outbox payload published for every order change.
type OrderEvent struct {
	Type          EventType   `json:"type"`
	OrderID       string      `json:"order_id"`
	Status        OrderStatus `json:"status"`
	TotalPrice    int64       `json:"total_price"`
	Date          string      `json:"date"`
	LoadingTime   string      `json:"loading_time"`
	UnloadingTime string      `json:"unloading_time"`
	FromAddress   string      `json:"from_address"`
	ToAddress     string      `json:"to_address"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

func NewOrderEvent(t EventType, o *Order) OrderEvent {
	return OrderEvent{
		Type:          t,
		OrderID:       o.ID,
		Status:        o.Status,
		TotalPrice:    o.TotalPrice,
		Date:          o.Draft.DeliveryInfo.Date,
		LoadingTime:   o.Draft.DeliveryInfo.LoadingTime,
		UnloadingTime: o.Draft.DeliveryInfo.UnloadingTime,
		FromAddress:   o.Draft.Addresses.FromAddress,
		ToAddress:     o.Draft.Addresses.ToAddress,
		OccurredAt:    o.UpdatedAt,
	}
}
