package worker

import (
	"context"
	"log"

	"pizza-platform/internal/broker"
	"pizza-platform/internal/models"
	"pizza-platform/internal/util"

	"go.uber.org/zap"
)

// NotificationWorker consumes order notification events and hands them to a
// dispatcher. It lives on the far side of the fire-and-forget boundary: its
// failures never reach the request that triggered the event.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	dispatcher   Dispatcher
	logger       *zap.Logger
}

// Dispatcher delivers customer-facing notifications. Email delivery is an
// external collaborator; LogDispatcher stands in for it here.
type Dispatcher interface {
	OrderPlaced(ctx context.Context, event *models.OrderCreatedEvent) error
	StatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}

// NewNotificationWorker creates a worker bound to a consumer and dispatcher.
func NewNotificationWorker(consumer *broker.Consumer, dispatcher Dispatcher) *NotificationWorker {
	w := &NotificationWorker{
		consumer:   consumer,
		dispatcher: dispatcher,
		logger:     util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderCreated(w.handleOrderCreated)
	eventHandler.OnOrderStatusChanged(w.handleStatusChanged)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	log.Println("Starting notification worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	log.Println("Stopping notification worker...")
	return w.consumer.Close()
}

func (w *NotificationWorker) handleOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	if err := w.dispatcher.OrderPlaced(ctx, event); err != nil {
		// Dispatch is best-effort; commit the message rather than retrying
		// a notification forever.
		util.NotificationsFailed.WithLabelValues(event.EventType).Inc()
		w.logger.Warn("Order-placed notification failed",
			zap.Int64("order_id", event.OrderID),
			zap.Error(err))
	}
	return nil
}

func (w *NotificationWorker) handleStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	if err := w.dispatcher.StatusChanged(ctx, event); err != nil {
		util.NotificationsFailed.WithLabelValues(event.EventType).Inc()
		w.logger.Warn("Status-changed notification failed",
			zap.Int64("order_id", event.OrderID),
			zap.String("status", event.NewStatus),
			zap.Error(err))
	}
	return nil
}

// LogDispatcher writes notifications to the log. The real email/push
// integration replaces this behind the same interface.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher creates the logging dispatcher.
func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{logger: util.GetLogger()}
}

func (d *LogDispatcher) OrderPlaced(_ context.Context, event *models.OrderCreatedEvent) error {
	d.logger.Info("NOTIFY order placed",
		zap.Int64("user_id", event.UserID),
		zap.String("order_number", event.OrderNumber),
		zap.Float64("total", event.TotalAmount))
	return nil
}

func (d *LogDispatcher) StatusChanged(_ context.Context, event *models.OrderStatusChangedEvent) error {
	d.logger.Info("NOTIFY order status changed",
		zap.Int64("user_id", event.UserID),
		zap.String("order_number", event.OrderNumber),
		zap.String("status", event.NewStatus))
	return nil
}
