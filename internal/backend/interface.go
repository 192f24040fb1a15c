// Package backend builds the finance API adapter and the optional mutation
// event transport from configuration.
package backend

import (
	"context"
	"time"

	"pfm/internal/amqp"
	"pfm/internal/gateway"
)

// CleanupFunc releases resources held by a Result.
type CleanupFunc func() error

// Result is what a surface needs to talk to the finance API.
type Result struct {
	API gateway.API

	// Events is nil when AMQP is not configured or unreachable.
	Events *amqp.Client

	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// http
	BaseURL string
	Token   string
	Timeout time.Duration

	// mutation events, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType names an adapter.
type BackendType string

const (
	HTTPBackend   BackendType = "http"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case HTTPBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Types returns all valid backend types.
func Types() []BackendType {
	return []BackendType{HTTPBackend, MemoryBackend}
}
