package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ecofashion/ecofashion-backend/pkg/db/models"
	"github.com/ecofashion/ecofashion-backend/pkg/enums"
)

// OrderSummary is the per-order view returned from checkout and group reads.
type OrderSummary struct {
	ID            uint                `json:"id"`
	SellerType    enums.SellerType    `json:"seller_type"`
	SellerID      uint                `json:"seller_id"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	ShippingFee   decimal.Decimal     `json:"shipping_fee"`
	Discount      decimal.Decimal     `json:"discount"`
	TotalPrice    decimal.Decimal     `json:"total_price"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	LineCount     int                 `json:"line_count"`
}

// GroupSummary is the checkout result: one group wrapping per-seller orders.
type GroupSummary struct {
	GroupID   uuid.UUID      `json:"group_id"`
	ExpiresAt time.Time      `json:"expires_at"`
	Orders    []OrderSummary `json:"orders"`
}

// SummarizeOrder maps a persisted order to its transport view.
func SummarizeOrder(order models.Order) OrderSummary {
	return OrderSummary{
		ID:            order.ID,
		SellerType:    order.SellerType,
		SellerID:      order.SellerID,
		Subtotal:      order.Subtotal,
		ShippingFee:   order.ShippingFee,
		Discount:      order.Discount,
		TotalPrice:    order.TotalPrice,
		PaymentStatus: order.PaymentStatus,
		LineCount:     len(order.Details),
	}
}
