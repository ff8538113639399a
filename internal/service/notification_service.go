package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/config"
	"github.com/spec-kit/field-service/internal/events"
)

// NotificationService handles emitting notifications for assignment events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTaskAssigned, n.handleTaskAssigned)
	n.dispatcher.Subscribe(events.EventTaskUnassigned, n.handleTaskUnassigned)
	n.dispatcher.Subscribe(events.EventTaskReassigned, n.handleTaskReassigned)
	n.dispatcher.Subscribe(events.EventMissionTasksAssigned, n.handleMissionTasksAssigned)
}

func (n *NotificationService) handleTaskAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("TaskAssigned", eventFields(event)...)
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTaskUnassigned(ctx context.Context, event events.Event) error {
	n.logger.Warn("TaskUnassigned", eventFields(event)...)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTaskReassigned(ctx context.Context, event events.Event) error {
	n.logger.Info("TaskReassigned", eventFields(event)...)
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleMissionTasksAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("MissionTasksAssigned", eventFields(event)...)
	if p, ok := event.Payload.(events.MissionTasksAssignedPayload); ok && p.UnassignedCount > 0 {
		n.sendWebhookNotificationStub(ctx, event)
	}
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("task_id", event.TaskID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("mission_id", event.MissionID),
		zap.String("event_type", string(event.Type)))
}

func eventFields(event events.Event) []zap.Field {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("mission_id", event.MissionID),
		zap.String("actor", event.Actor.UserID),
		zap.Any("payload", event.Payload),
	}
	if event.TaskID != "" {
		fields = append(fields, zap.String("task_id", event.TaskID))
	}
	return fields
}
