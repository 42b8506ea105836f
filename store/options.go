package store

import (
	"go.uber.org/zap"

	"github.com/on-the-ground/oneway_go/internal/delivery"
	"github.com/on-the-ground/oneway_go/trace"
)

type config struct {
	logger *zap.Logger
	tracer *trace.Tracer
	exec   *delivery.Executor
}

// Option configures a store at construction time.
type Option func(*config)

// WithLogger overrides the store's diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithTracer overrides the tracer that traced commits are described to.
func WithTracer(tracer *trace.Tracer) Option {
	return func(c *config) { c.tracer = tracer }
}

// WithExecutor overrides the delivery executor. Sharing one executor across
// stores is what keeps their commits in a single total order; overriding it
// is meant for tests that need an isolated delivery context.
func WithExecutor(exec *delivery.Executor) Option {
	return func(c *config) { c.exec = exec }
}

type sendConfig struct {
	traced bool
	label  string
}

// SendOption configures one dispatch.
type SendOption func(*sendConfig)

// WithTrace asks the store to diff this dispatch's commit against the state
// it replaces and publish the result under the given context label.
func WithTrace(label string) SendOption {
	return func(c *sendConfig) {
		c.traced = true
		c.label = label
	}
}
