package backend

import (
	"jichul/internal/amqp"
	"jichul/internal/config"
	"jichul/internal/log"
)

// NewAMQPClient connects the change-event client. It returns nil when
// AMQP_URL is unset or the broker cannot be reached; the server keeps
// running without notifications in that case.
func NewAMQPClient(cfg *config.Config, logger *log.Logger) *amqp.Client {
	if cfg.AMQPURL == "" {
		return nil
	}
	logger = log.OrDiscard(logger).WithComponent(log.ComponentBackend)
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without change events", log.FieldError, err.Error())
		return nil
	}
	logger.Info("Initialized AMQP client",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client
}
