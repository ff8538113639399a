package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/config"
	"github.com/spec-kit/field-service/internal/events"
	"github.com/spec-kit/field-service/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartEventForwarder connects to the broker and forwards every dispatcher event to it.
// It returns a nil forwarder when forwarding is disabled. Callers Close the result on
// shutdown.
func StartEventForwarder(ctx context.Context, cfg config.BrokerConfig, dispatcher events.Dispatcher, logger *zap.Logger) (*events.AMQPForwarder, error) {
	if !cfg.Enabled() || dispatcher == nil {
		logger.Info("event forwarding disabled")
		return nil, nil
	}
	forwarder, err := events.DialAMQPForwarder(ctx, cfg, logger.Named("amqp"))
	if err != nil {
		return nil, err
	}
	forwarder.Register(dispatcher)
	return forwarder, nil
}
