package backend

import (
	"fmt"
	"net/url"

	"pfm/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.APIBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.APIBackend)
	}

	return Config{
		Type: backendType,

		BaseURL: appConfig.APIBaseURL,
		Token:   appConfig.APIToken,
		Timeout: appConfig.APITimeout,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	if c.Type == HTTPBackend {
		if c.BaseURL == "" {
			return fmt.Errorf("API base URL is required for http backend")
		}
		if u, err := url.Parse(c.BaseURL); err != nil || u.Host == "" {
			return fmt.Errorf("invalid API base URL: %s", c.BaseURL)
		}
		if c.Timeout < 0 {
			return fmt.Errorf("API timeout must not be negative")
		}
	}

	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when AMQP URL is set")
	}

	return nil
}
