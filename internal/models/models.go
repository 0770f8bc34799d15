package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Pizza categories
const (
	CategoryVegetarian = "vegetarian"
	CategoryMeat       = "meat"
	CategorySeafood    = "seafood"
	CategorySpecialty  = "specialty"
)

// Pizza represents a catalog item. The order flow only ever reads pizzas;
// catalog management owns the write path.
type Pizza struct {
	ID          int64          `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	BasePrice   float64        `db:"base_price" json:"base_price"`
	Category    string         `db:"category" json:"category"`
	Ingredients pq.StringArray `db:"ingredients" json:"ingredients"`
	Image       string         `db:"image" json:"image"`
	Available   bool           `db:"available" json:"available"`
	Sizes       []SizeVariant  `db:"-" json:"sizes"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// SizeVariant is a per-pizza size with its price multiplier
type SizeVariant struct {
	PizzaID    int64   `db:"pizza_id" json:"-"`
	Name       string  `db:"name" json:"name"`
	Multiplier float64 `db:"multiplier" json:"multiplier"`
}

// User is the minimal principal record the order core needs. Authentication
// itself happens upstream; roles are always re-read from this table.
type User struct {
	ID        int64     `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// User roles
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleKitchen  = "kitchen"
	RoleAdmin    = "admin"
)

// IsStaff reports whether the role grants access to staff-only surfaces.
func (u *User) IsStaff() bool {
	return u.Role == RoleStaff || u.Role == RoleKitchen || u.Role == RoleAdmin
}

// DeliveryAddress is stored as a JSONB column on the order row.
type DeliveryAddress struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
	Phone  string `json:"phone"`
}

// Value implements driver.Valuer so sqlx can write the address as JSONB.
func (a DeliveryAddress) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner for reading the JSONB column back.
func (a *DeliveryAddress) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	case nil:
		return nil
	}
	return fmt.Errorf("unsupported address column type %T", src)
}

// Order is the aggregate root. After creation only status, payment_status,
// delivered_at and updated_at ever change; cancellation is a status, orders
// are never deleted.
type Order struct {
	ID                  int64           `db:"id" json:"id"`
	OrderNumber         string          `db:"order_number" json:"order_number"`
	UserID              int64           `db:"user_id" json:"user_id"`
	Status              string          `db:"status" json:"status"`
	PaymentStatus       string          `db:"payment_status" json:"payment_status"`
	PaymentMethod       string          `db:"payment_method" json:"payment_method"`
	DeliveryAddress     DeliveryAddress `db:"delivery_address" json:"delivery_address"`
	SpecialInstructions string          `db:"special_instructions" json:"special_instructions,omitempty"`
	EstimatedDelivery   time.Time       `db:"estimated_delivery" json:"estimated_delivery"`
	DeliveredAt         *time.Time      `db:"delivered_at" json:"delivered_at,omitempty"`
	Items               []OrderItem     `db:"-" json:"items"`
	TotalAmount         float64         `db:"total_amount" json:"total_amount"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderItem is an immutable line item. Name and image are snapshotted at
// order time so history survives catalog edits; PizzaID may point at a
// since-deleted pizza.
type OrderItem struct {
	ID         int64   `db:"id" json:"id"`
	OrderID    int64   `db:"order_id" json:"order_id"`
	PizzaID    *int64  `db:"pizza_id" json:"pizza_id,omitempty"`
	Name       string  `db:"name" json:"name"`
	Image      string  `db:"image" json:"image,omitempty"`
	Size       string  `db:"size" json:"size"`
	Quantity   int     `db:"quantity" json:"quantity"`
	UnitPrice  float64 `db:"unit_price" json:"unit_price"`
	TotalPrice float64 `db:"total_price" json:"total_price"`
}

// Order statuses
const (
	OrderStatusPending        = "pending"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusPreparing      = "preparing"
	OrderStatusBaking         = "baking"
	OrderStatusReady          = "ready"
	OrderStatusOutForDelivery = "out-for-delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
)

// Payment statuses
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// AdminStats is the aggregate view backing the staff dashboard header.
type AdminStats struct {
	TotalOrders       int64   `db:"total_orders" json:"total_orders"`
	CompletedOrders   int64   `db:"completed_orders" json:"completed_orders"`
	CancelledOrders   int64   `db:"cancelled_orders" json:"cancelled_orders"`
	TotalRevenue      float64 `db:"total_revenue" json:"total_revenue"`
	AverageOrderValue float64 `json:"average_order_value"`
}
