package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/opsdesk/ticket-workflow/internal/config"
	"github.com/opsdesk/ticket-workflow/internal/events"
	"github.com/opsdesk/ticket-workflow/internal/persistence"
)

// NotificationService forwards domain events to external consumers through a
// redis queue. Delivery is best-effort; a queue failure never fails the
// originating operation.
type NotificationService struct {
	dispatcher events.Dispatcher
	queue      *persistence.Redis
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, queue *persistence.Redis, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		queue:      queue,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to every engine event.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketUpdated,
		events.EventStepCompleted,
		events.EventTicketResolved,
		events.EventTicketReverted,
		events.EventTicketReassigned,
		events.EventTicketOverdue,
	} {
		n.dispatcher.Subscribe(eventType, n.enqueue)
	}
}

func (n *NotificationService) enqueue(ctx context.Context, event events.Event) error {
	n.logger.Info("notification",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID))

	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("marshal notification", zap.Error(err))
		return nil
	}
	if err := n.queue.Enqueue(ctx, n.cfg.QueueKey, payload); err != nil {
		n.logger.Warn("enqueue notification", zap.Error(err),
			zap.String("queue", n.cfg.QueueKey))
	}
	return nil
}
