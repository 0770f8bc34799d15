package store

import (
	"context"
	"database/sql"
	"fmt"

	"pizza-platform/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateOrder inserts the order and its line items in one transaction.
// Line items are immutable after this point.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (order_number, user_id, status, payment_status, payment_method,
		                    delivery_address, special_instructions, estimated_delivery, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err = tx.GetContext(ctx, order, query,
		order.OrderNumber, order.UserID, order.Status, order.PaymentStatus,
		order.PaymentMethod, order.DeliveryAddress, order.SpecialInstructions,
		order.EstimatedDelivery, order.TotalAmount)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, pizza_id, name, image, size, quantity, unit_price, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if err := tx.GetContext(ctx, &item.ID, itemQuery,
			item.OrderID, item.PizzaID, item.Name, item.Image, item.Size,
			item.Quantity, item.UnitPrice, item.TotalPrice); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order aggregate with its items.
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := s.attachItems(ctx, []*models.Order{&order}); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByUserID retrieves a customer's orders, newest first.
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	return orders, s.attachItemsSlice(ctx, orders)
}

// ListOrders is the staff listing with an optional status filter.
func (s *Store) ListOrders(ctx context.Context, statusFilter string, limit int) ([]models.Order, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var orders []models.Order
	var err error
	if statusFilter != "" {
		err = s.db.SelectContext(ctx, &orders,
			"SELECT * FROM orders WHERE status = $1 ORDER BY created_at DESC LIMIT $2",
			statusFilter, limit)
	} else {
		err = s.db.SelectContext(ctx, &orders,
			"SELECT * FROM orders ORDER BY created_at DESC LIMIT $1", limit)
	}
	if err != nil {
		return nil, err
	}
	return orders, s.attachItemsSlice(ctx, orders)
}

// AllOrders returns every order with items, newest first. The sync bridge
// uses this to build its shared snapshot.
func (s *Store) AllOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, "SELECT * FROM orders ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	return orders, s.attachItemsSlice(ctx, orders)
}

func (s *Store) attachItemsSlice(ctx context.Context, orders []models.Order) error {
	refs := make([]*models.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	return s.attachItems(ctx, refs)
}

func (s *Store) attachItems(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*models.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	query, args, err := sqlx.In("SELECT * FROM order_items WHERE order_id IN (?) ORDER BY id", ids)
	if err != nil {
		return err
	}
	query = s.db.Rebind(query)

	var items []models.OrderItem
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return err
	}

	for _, item := range items {
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return nil
}

// UpdateOrderStatus persists an accepted status transition. delivered_at is
// only set when entering delivered.
func (s *Store) UpdateOrderStatus(ctx context.Context, order *models.Order) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, delivered_at = $2, updated_at = NOW() WHERE id = $3",
		order.Status, order.DeliveredAt, order.ID)
	return err
}

// UpdatePaymentStatus flips the payment_status field.
func (s *Store) UpdatePaymentStatus(ctx context.Context, orderID int64, paymentStatus string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET payment_status = $1, updated_at = NOW() WHERE id = $2",
		paymentStatus, orderID)
	return err
}

// GetAdminStats aggregates the dashboard counters. Average order value is
// total revenue over all orders, computed in the service layer.
func (s *Store) GetAdminStats(ctx context.Context) (*models.AdminStats, error) {
	var stats models.AdminStats
	err := s.db.GetContext(ctx, &stats, `
		SELECT COUNT(*)                                             AS total_orders,
		       COUNT(*) FILTER (WHERE status = 'delivered')         AS completed_orders,
		       COUNT(*) FILTER (WHERE status = 'cancelled')         AS cancelled_orders,
		       COALESCE(SUM(total_amount) FILTER (WHERE status <> 'cancelled'), 0) AS total_revenue
		FROM orders`)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
