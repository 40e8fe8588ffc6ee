// Package pricing holds the fee rules shared by every step of the order flow.
package pricing

import (
	"math"

	"github.com/bigmove/backend/internal/models"
)

const (
	// BaseDistanceKm is covered by the base price.
	BaseDistanceKm = 10.0
	// FeePerKm is charged for each kilometre beyond BaseDistanceKm.
	FeePerKm = 2000
)

var deliveryFees = map[models.DeliveryOption]int64{
	models.DeliverySameDay: 50000,
	models.DeliveryNextDay: 30000,
	models.DeliveryRegular: 0,
}

// DeliveryFee returns the flat surcharge of a delivery option, 0 when unknown.
func DeliveryFee(option models.DeliveryOption) int64 {
	return deliveryFees[option]
}

// AdditionalDistance is the part of distance that is not free, in km.
func AdditionalDistance(distance float64) float64 {
	if distance <= BaseDistanceKm {
		return 0
	}
	return math.Round((distance-BaseDistanceKm)*10) / 10
}

// DistanceFee applies the linear overage tariff; 10 km and below are free.
func DistanceFee(distance float64) int64 {
	if distance <= BaseDistanceKm {
		return 0
	}
	return int64(math.Round((distance - BaseDistanceKm) * FeePerKm))
}

// ApplyDistance fills the distance fields of an address section.
func ApplyDistance(a models.Addresses, distance float64) models.Addresses {
	a.Distance = distance
	a.BaseDistance = BaseDistanceKm
	a.AdditionalDistance = AdditionalDistance(distance)
	a.DistanceFee = DistanceFee(distance)
	return a
}

func Subtotal(items []models.OrderItem) int64 {
	var sum int64
	for _, it := range items {
		sum += it.Price * it.Quantity
	}
	return sum
}

// Calculate derives the price breakdown from the whole draft.
func Calculate(d models.OrderDraft) models.PriceDetails {
	base := Subtotal(d.Items)
	fees := models.AdditionalFees{
		DeliveryFee: d.DeliveryInfo.DeliveryFee,
		DistanceFee: d.Addresses.DistanceFee,
		ServiceFee:  d.ServiceOptions.TotalOptionFee,
	}
	return models.PriceDetails{
		BasePrice:      base,
		AdditionalFees: fees,
		TotalPrice:     base + fees.DeliveryFee + fees.DistanceFee + fees.ServiceFee,
	}
}
