package models

import "time"

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Order represents a placed meal order. Checkout is handed off to WhatsApp;
// the stored order is the authoritative record of what was sent there.
type Order struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Status      string    `json:"status" db:"status"`
	TotalINR    int       `json:"total_inr" db:"total_inr"`
	Address     string    `json:"address" db:"address"`
	Pincode     string    `json:"pincode" db:"pincode"`
	WhatsAppURL string    `json:"whatsapp_url" db:"whatsapp_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// OrderItem is a single line of an order
type OrderItem struct {
	ID       string `json:"id" db:"id"`
	OrderID  string `json:"order_id" db:"order_id"`
	MealID   string `json:"meal_id" db:"meal_id"`
	MealName string `json:"meal_name" db:"meal_name"`
	Quantity int    `json:"quantity" db:"quantity"`
	PriceINR int    `json:"price_inr" db:"price_inr"`
}

// NewOrderRequest is the request structure for placing an order
type NewOrderRequest struct {
	Items   []NewOrderItem `json:"items"`
	Address string         `json:"address"`
	Pincode string         `json:"pincode"`
}

// NewOrderItem is one requested line (meal_id + quantity)
type NewOrderItem struct {
	MealID   string `json:"meal_id"`
	Quantity int    `json:"quantity"`
}

// NewOrderResponse returns the stored order and the WhatsApp checkout URL
type NewOrderResponse struct {
	Order       Order       `json:"order"`
	Items       []OrderItem `json:"items"`
	WhatsAppURL string      `json:"whatsapp_url"`
}

// OrderEmailPayload is the Kafka payload for order-confirmation emails
type OrderEmailPayload struct {
	OrderID string      `json:"order_id"`
	To      string      `json:"to"`
	Name    string      `json:"name"`
	Total   int         `json:"total_inr"`
	Items   []OrderItem `json:"items"`
}
