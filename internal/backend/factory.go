package backend

import (
	"context"
	"fmt"

	"pfm/internal/amqp"
	"pfm/internal/gateway/httpapi"
	"pfm/internal/gateway/memory"
	"pfm/internal/log"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

var _ Factory = (*DefaultFactory)(nil)

// Create builds the API adapter named by config and, when AMQP is
// configured, the mutation event client. A broker that cannot be reached is
// logged and skipped.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var res *Result
	switch config.Type {
	case HTTPBackend:
		res = f.createHTTPBackend(config)
	case MemoryBackend:
		res = f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without mutation events",
				log.FieldError, err.Error())
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			res.Events = client
		}
	}

	res.Cleanup = func() error {
		if res.Events != nil {
			return res.Events.Close()
		}
		return nil
	}
	return res, nil
}

func (f *DefaultFactory) createHTTPBackend(config Config) *Result {
	opts := []httpapi.Option{httpapi.WithTimeout(config.Timeout)}
	if config.Token != "" {
		opts = append(opts, httpapi.WithToken(config.Token))
	}
	client := httpapi.New(config.BaseURL, opts...)

	f.logger.Info("Initialized HTTP backend",
		log.FieldURL, client.BaseURL(),
		"timeout", config.Timeout.String(),
		"authenticated", config.Token != "")

	return &Result{API: client}
}

func (f *DefaultFactory) createMemoryBackend() *Result {
	store := memory.New(nil)
	f.logger.Info("Initialized memory backend", log.FieldCount, len(memory.DefaultCategories))
	return &Result{API: store}
}

// Close runs the cleanup of r, if any.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	if err := r.Cleanup(); err != nil {
		return fmt.Errorf("backend cleanup: %w", err)
	}
	return nil
}
