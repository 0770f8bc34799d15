package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"pizza-platform/internal/broker"
	"pizza-platform/internal/models"
	"pizza-platform/internal/pricing"
	"pizza-platform/internal/realtime"
	"pizza-platform/internal/status"
	"pizza-platform/internal/store"
	"pizza-platform/internal/syncbridge"
	"pizza-platform/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService handles order placement, status transitions and their
// fan-out side effects.
type OrderService struct {
	store            *store.Store
	relay            *realtime.Relay
	bridge           *syncbridge.Bridge
	eventPublisher   *broker.EventPublisher
	machine          status.Machine
	deliveryEstimate time.Duration
	logger           *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	st *store.Store,
	relay *realtime.Relay,
	bridge *syncbridge.Bridge,
	eventPublisher *broker.EventPublisher,
	machine status.Machine,
	deliveryEstimate time.Duration,
) *OrderService {
	return &OrderService{
		store:            st,
		relay:            relay,
		bridge:           bridge,
		eventPublisher:   eventPublisher,
		machine:          machine,
		deliveryEstimate: deliveryEstimate,
		logger:           util.GetLogger(),
	}
}

// CreateOrderRequest is the checkout payload. TotalAmount and per-item
// UnitPrice are advisory: the server always recomputes from the catalog,
// advisory prices only feed the degraded path for deleted catalog items.
type CreateOrderRequest struct {
	Items               []OrderItemRequest     `json:"items" binding:"required,min=1"`
	DeliveryAddress     models.DeliveryAddress `json:"deliveryAddress"`
	SpecialInstructions string                 `json:"specialInstructions"`
	PaymentMethod       string                 `json:"paymentMethod" binding:"required"`
	TotalAmount         float64                `json:"totalAmount"`
}

// OrderItemRequest represents an item in an order
type OrderItemRequest struct {
	PizzaID   int64   `json:"pizza_id" binding:"required"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// CreateOrderResponse is returned after a successful checkout.
type CreateOrderResponse struct {
	OrderID           int64     `json:"orderId"`
	OrderNumber       string    `json:"orderNumber"`
	Status            string    `json:"status"`
	EstimatedDelivery time.Time `json:"estimatedDelivery"`
}

// CreateOrder validates the request, recomputes authoritative totals from
// the catalog, persists the aggregate and fans out the side effects. Fan-out
// and notification failures never fail the request.
func (s *OrderService) CreateOrder(ctx context.Context, user *models.User, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if err := validateCreateRequest(req); err != nil {
		util.OrdersFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	pizzas, err := s.lookupCatalog(ctx, req.Items)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("catalog").Inc()
		return nil, &DependencyError{Op: "catalog lookup", Err: err}
	}

	items, err := s.priceItems(req.Items, pizzas)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("pricing").Inc()
		return nil, err
	}

	total := pricing.OrderTotal(items)
	if req.TotalAmount != 0 && req.TotalAmount != total {
		s.logger.Debug("Discarding advisory client total",
			zap.Float64("advisory", req.TotalAmount),
			zap.Float64("computed", total))
	}

	order := &models.Order{
		OrderNumber:         newOrderNumber(),
		UserID:              user.ID,
		Status:              models.OrderStatusPending,
		PaymentStatus:       models.PaymentStatusPending,
		PaymentMethod:       req.PaymentMethod,
		DeliveryAddress:     req.DeliveryAddress,
		SpecialInstructions: req.SpecialInstructions,
		EstimatedDelivery:   time.Now().Add(s.deliveryEstimate),
		Items:               items,
		TotalAmount:         total,
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, &DependencyError{Op: "persist order", Err: err}
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Float64("total", order.TotalAmount))

	s.fanOutNewOrder(ctx, order, user)
	s.notifyOrderCreated(ctx, order)
	s.bridge.Refresh(ctx)

	return &CreateOrderResponse{
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		Status:            order.Status,
		EstimatedDelivery: order.EstimatedDelivery,
	}, nil
}

func validateCreateRequest(req *CreateOrderRequest) error {
	if len(req.Items) == 0 {
		return &ValidationError{Reason: "order must contain at least one item"}
	}
	if req.PaymentMethod == "" {
		return &ValidationError{Reason: "payment method is required"}
	}
	addr := req.DeliveryAddress
	if addr.Street == "" || addr.City == "" || addr.Phone == "" {
		return &ValidationError{Reason: "delivery address must include street, city and phone"}
	}
	return nil
}

// lookupCatalog fans out one lookup per distinct pizza id and joins the
// results. A missing pizza is not an error here; pricing degrades per item.
func (s *OrderService) lookupCatalog(ctx context.Context, items []OrderItemRequest) (map[int64]*models.Pizza, error) {
	distinct := make(map[int64]struct{}, len(items))
	for _, item := range items {
		distinct[item.PizzaID] = struct{}{}
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		pizzas   = make(map[int64]*models.Pizza, len(distinct))
		firstErr error
	)

	for id := range distinct {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			pizza, err := s.store.GetPizzaByID(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				pizzas[id] = pizza
			case errors.Is(err, store.ErrNotFound):
				// Degraded pricing handles it.
			case firstErr == nil:
				firstErr = err
			}
		}(id)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return pizzas, nil
}

// priceItems computes authoritative line items. Items whose catalog entry is
// gone use the degraded path (advisory price + size extra); an item with
// neither catalog entry nor advisory price cannot be priced at all, and an
// order with no priceable items fails.
func (s *OrderService) priceItems(reqItems []OrderItemRequest, pizzas map[int64]*models.Pizza) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(reqItems))

	for _, ri := range reqItems {
		qty := pricing.ClampQuantity(ri.Quantity)
		pizzaID := ri.PizzaID

		if pizza, ok := pizzas[pizzaID]; ok {
			unit := pricing.UnitPrice(pizza, ri.Size)
			items = append(items, models.OrderItem{
				PizzaID:    &pizzaID,
				Name:       pizza.Name,
				Image:      pizza.Image,
				Size:       ri.Size,
				Quantity:   qty,
				UnitPrice:  unit,
				TotalPrice: pricing.LineTotal(unit, qty),
			})
			continue
		}

		if ri.UnitPrice <= 0 {
			s.logger.Warn("Skipping unpriceable line item",
				zap.Int64("pizza_id", pizzaID))
			continue
		}

		util.DegradedPricingTotal.Inc()
		unit := pricing.FallbackUnitPrice(ri.UnitPrice, ri.Size)
		items = append(items, models.OrderItem{
			PizzaID:    &pizzaID,
			Name:       ri.Name,
			Image:      ri.Image,
			Size:       ri.Size,
			Quantity:   qty,
			UnitPrice:  unit,
			TotalPrice: pricing.LineTotal(unit, qty),
		})
	}

	if len(items) == 0 {
		return nil, &NotFoundError{Resource: "any orderable catalog item"}
	}
	return items, nil
}

func newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return "PZ-" + time.Now().Format("20060102") + "-" + suffix
}

// GetOrder returns a single order; only the owner or staff may read it.
func (s *OrderService) GetOrder(ctx context.Context, principal *models.User, orderID int64) (*models.Order, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &NotFoundError{Resource: "order"}
		}
		return nil, &DependencyError{Op: "load order", Err: err}
	}

	if order.UserID != principal.ID && !principal.IsStaff() {
		return nil, &AuthorizationError{Reason: "only the order's owner or staff may view it"}
	}
	return order, nil
}

// ListUserOrders returns the principal's own orders, newest first.
func (s *OrderService) ListUserOrders(ctx context.Context, principal *models.User) ([]models.Order, error) {
	orders, err := s.store.GetOrdersByUserID(ctx, principal.ID)
	if err != nil {
		return nil, &DependencyError{Op: "list orders", Err: err}
	}
	return orders, nil
}

// ListAdminOrders is the staff listing with an optional status filter.
func (s *OrderService) ListAdminOrders(ctx context.Context, principal *models.User, statusFilter string, limit int) ([]models.Order, error) {
	if !principal.IsStaff() {
		return nil, &AuthorizationError{Reason: "staff role required"}
	}
	if statusFilter != "" && !status.IsValid(statusFilter) {
		return nil, &ValidationError{Reason: "unknown status filter"}
	}

	orders, err := s.store.ListOrders(ctx, statusFilter, limit)
	if err != nil {
		return nil, &DependencyError{Op: "list orders", Err: err}
	}
	return orders, nil
}

// UpdateStatus applies a staff-initiated transition. The state machine
// decides acceptance; fan-out and notifications are best-effort afterwards.
func (s *OrderService) UpdateStatus(ctx context.Context, principal *models.User, orderID int64, newStatus string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	if !principal.IsStaff() {
		return nil, &AuthorizationError{Reason: "staff role required"}
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &NotFoundError{Resource: "order"}
		}
		return nil, &DependencyError{Op: "load order", Err: err}
	}

	oldStatus := order.Status
	if err := s.machine.Apply(order, newStatus); err != nil {
		util.StatusTransitionsRejected.WithLabelValues(newStatus).Inc()
		return nil, &ValidationError{Reason: err.Error()}
	}

	if err := s.store.UpdateOrderStatus(ctx, order); err != nil {
		return nil, &DependencyError{Op: "persist status", Err: err}
	}

	util.StatusTransitionsAccepted.WithLabelValues(newStatus).Inc()
	s.logger.Info("Order status changed",
		zap.Int64("order_id", order.ID),
		zap.String("from", oldStatus),
		zap.String("to", newStatus))

	s.fanOutStatusChange(ctx, order)
	s.notifyStatusChanged(ctx, order, oldStatus)
	s.bridge.Refresh(ctx)

	return order, nil
}

// ConfirmPayment records the payment gateway's opaque "payment confirmed"
// signal and advances a still-pending order to confirmed.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &NotFoundError{Resource: "order"}
		}
		return nil, &DependencyError{Op: "load order", Err: err}
	}

	if err := s.store.UpdatePaymentStatus(ctx, order.ID, models.PaymentStatusCompleted); err != nil {
		return nil, &DependencyError{Op: "persist payment status", Err: err}
	}
	order.PaymentStatus = models.PaymentStatusCompleted

	if order.Status == models.OrderStatusPending {
		oldStatus := order.Status
		if err := s.machine.Apply(order, models.OrderStatusConfirmed); err == nil {
			if err := s.store.UpdateOrderStatus(ctx, order); err != nil {
				return nil, &DependencyError{Op: "persist status", Err: err}
			}
			util.StatusTransitionsAccepted.WithLabelValues(order.Status).Inc()
			s.fanOutStatusChange(ctx, order)
			s.notifyStatusChanged(ctx, order, oldStatus)
		}
	}

	s.bridge.Refresh(ctx)
	return order, nil
}

// AdminStats aggregates the staff dashboard counters. Average order value is
// revenue over all orders, zero when there are none.
func (s *OrderService) AdminStats(ctx context.Context, principal *models.User) (*models.AdminStats, error) {
	if !principal.IsStaff() {
		return nil, &AuthorizationError{Reason: "staff role required"}
	}

	stats, err := s.store.GetAdminStats(ctx)
	if err != nil {
		return nil, &DependencyError{Op: "load stats", Err: err}
	}
	if stats.TotalOrders > 0 {
		stats.AverageOrderValue = pricing.Round2(stats.TotalRevenue / float64(stats.TotalOrders))
	}
	return stats, nil
}

// fanOutNewOrder pushes the full order to staff topics and a summary to the
// customer's topics.
func (s *OrderService) fanOutNewOrder(ctx context.Context, order *models.Order, user *models.User) {
	full := &models.NewOrderPayload{Order: order, User: user}
	s.relay.Publish(ctx, realtime.TopicAdminRoom, models.EventNewOrder, full)
	s.relay.Publish(ctx, realtime.TopicKitchen, models.EventNewOrder, full)

	summary := &models.StatusChangedPayload{
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		Status:            order.Status,
		EstimatedDelivery: order.EstimatedDelivery,
	}
	s.relay.Publish(ctx, realtime.UserTopic(order.UserID), models.EventOrderStatusChanged, summary)
	s.relay.Publish(ctx, realtime.OrderTopic(order.ID), models.EventOrderStatusChanged, summary)
}

// fanOutStatusChange pushes a summary to the owner, the full snapshot to
// trackers, and the update to the admin room.
func (s *OrderService) fanOutStatusChange(ctx context.Context, order *models.Order) {
	summary := &models.StatusChangedPayload{
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		Status:            order.Status,
		EstimatedDelivery: order.EstimatedDelivery,
	}
	s.relay.Publish(ctx, realtime.UserTopic(order.UserID), models.EventOrderStatusChanged, summary)

	full := &models.OrderUpdatedPayload{Order: order}
	s.relay.Publish(ctx, realtime.OrderTopic(order.ID), models.EventOrderUpdated, full)
	s.relay.Publish(ctx, realtime.TopicAdminRoom, models.EventOrderUpdated, full)
}

func (s *OrderService) notifyOrderCreated(ctx context.Context, order *models.Order) {
	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		ItemCount:   len(order.Items),
	}

	if err := s.eventPublisher.PublishOrderCreated(ctx, event); err != nil {
		util.NotificationsFailed.WithLabelValues(models.EventTypeOrderCreated).Inc()
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
		return
	}
	util.NotificationsPublished.WithLabelValues(models.EventTypeOrderCreated).Inc()
}

func (s *OrderService) notifyStatusChanged(ctx context.Context, order *models.Order, oldStatus string) {
	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		UserID:            order.UserID,
		OldStatus:         oldStatus,
		NewStatus:         order.Status,
		EstimatedDelivery: order.EstimatedDelivery,
	}

	if err := s.eventPublisher.PublishOrderStatusChanged(ctx, event); err != nil {
		util.NotificationsFailed.WithLabelValues(models.EventTypeOrderStatusChanged).Inc()
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
		return
	}
	util.NotificationsPublished.WithLabelValues(models.EventTypeOrderStatusChanged).Inc()
}
