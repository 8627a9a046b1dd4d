// Package orders persists meal orders and builds the WhatsApp checkout
// handoff the client opens to confirm with the store.
package orders

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/honestmeals/honestmeals/internal/models"
)

// ErrEmptyOrder is returned when an order has no items.
var ErrEmptyOrder = errors.New("order must contain at least one item")

type Store struct {
	db             *sqlx.DB
	whatsAppNumber string
}

func NewStore(db *sqlx.DB, whatsAppNumber string) *Store {
	return &Store{db: db, whatsAppNumber: whatsAppNumber}
}

// Create validates the requested items against the catalog rows passed in,
// computes the total, persists the order with its lines in one transaction
// and returns it together with the WhatsApp checkout URL.
func (s *Store) Create(ctx context.Context, userID string, req models.NewOrderRequest, catalog map[string]models.Meal) (models.NewOrderResponse, error) {
	if len(req.Items) == 0 {
		return models.NewOrderResponse{}, ErrEmptyOrder
	}
	if strings.TrimSpace(req.Address) == "" || strings.TrimSpace(req.Pincode) == "" {
		return models.NewOrderResponse{}, errors.New("delivery address and pincode are required")
	}

	orderID := uuid.NewString()
	total := 0
	items := make([]models.OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		meal, ok := catalog[line.MealID]
		if !ok {
			return models.NewOrderResponse{}, fmt.Errorf("unknown meal: %s", line.MealID)
		}
		if line.Quantity <= 0 {
			return models.NewOrderResponse{}, fmt.Errorf("invalid quantity for %s", meal.Name)
		}
		items = append(items, models.OrderItem{
			ID:       uuid.NewString(),
			OrderID:  orderID,
			MealID:   meal.ID,
			MealName: meal.Name,
			Quantity: line.Quantity,
			PriceINR: meal.PriceINR,
		})
		total += meal.PriceINR * line.Quantity
	}

	order := models.Order{
		ID:        orderID,
		UserID:    userID,
		Status:    models.OrderStatusPending,
		TotalINR:  total,
		Address:   req.Address,
		Pincode:   req.Pincode,
		CreatedAt: time.Now().UTC(),
	}
	order.WhatsAppURL = s.BuildWhatsAppURL(order, items)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.NewOrderResponse{}, fmt.Errorf("failed to open transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO orders (id, user_id, status, total_inr, address, pincode, whatsapp_url, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		order.ID, order.UserID, order.Status, order.TotalINR, order.Address, order.Pincode, order.WhatsAppURL, order.CreatedAt,
	)
	if err != nil {
		return models.NewOrderResponse{}, fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range items {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO order_items (id, order_id, meal_id, meal_name, quantity, price_inr) VALUES ($1, $2, $3, $4, $5, $6)",
			item.ID, item.OrderID, item.MealID, item.MealName, item.Quantity, item.PriceINR,
		)
		if err != nil {
			return models.NewOrderResponse{}, fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.NewOrderResponse{}, fmt.Errorf("failed to commit order: %w", err)
	}

	return models.NewOrderResponse{Order: order, Items: items, WhatsAppURL: order.WhatsAppURL}, nil
}

// ListByUser returns the user's orders, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders,
		"SELECT id, user_id, status, total_inr, address, pincode, whatsapp_url, created_at FROM orders WHERE user_id = $1 ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// ListItems returns the lines of one order.
func (s *Store) ListItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	err := s.db.SelectContext(ctx, &items,
		"SELECT id, order_id, meal_id, meal_name, quantity, price_inr FROM order_items WHERE order_id = $1",
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	return items, nil
}

// BuildWhatsAppURL renders the order summary into a wa.me link the client
// opens to finish checkout.
func (s *Store) BuildWhatsAppURL(order models.Order, items []models.OrderItem) string {
	var sb strings.Builder
	sb.WriteString("Hi Honest Meals! I'd like to order:\n")
	for _, item := range items {
		fmt.Fprintf(&sb, "- %dx %s (₹%d)\n", item.Quantity, item.MealName, item.PriceINR*item.Quantity)
	}
	fmt.Fprintf(&sb, "Total: ₹%d\n", order.TotalINR)
	fmt.Fprintf(&sb, "Deliver to: %s, %s\n", order.Address, order.Pincode)
	fmt.Fprintf(&sb, "Order ref: %s", order.ID)

	return fmt.Sprintf("https://wa.me/%s?text=%s", s.whatsAppNumber, url.QueryEscape(sb.String()))
}
