// Package server runs the process's long-lived components under one
// start/stop lifecycle.
package server

import "context"

// Lifecycle defines the lifecycle interface for servers.
type Lifecycle interface {
	// Start starts the server. It must return once the server is accepting work.
	Start(ctx context.Context) error
	// Stop stops the server gracefully.
	Stop(ctx context.Context) error
}

// Runnable represents a component that can be started and stopped.
type Runnable interface {
	Lifecycle
	// Name returns the server name for identification.
	Name() string
}

// CloserFunc adapts a shutdown hook (pool release, tracer flush) to Runnable.
type CloserFunc struct {
	name  string
	close func(ctx context.Context) error
}

// NewCloser returns a Runnable whose Start is a no-op and whose Stop runs fn.
func NewCloser(name string, fn func(ctx context.Context) error) *CloserFunc {
	return &CloserFunc{name: name, close: fn}
}

// Name implements Runnable.
func (c *CloserFunc) Name() string { return c.name }

// Start implements Lifecycle.
func (c *CloserFunc) Start(context.Context) error { return nil }

// Stop implements Lifecycle.
func (c *CloserFunc) Stop(ctx context.Context) error { return c.close(ctx) }
