package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

var (
	ErrNotConfigured = errors.New("store connection target is not configured")
	ErrConnection    = errors.New("store is unreachable")
)

// Connector opens and checks connections of type C. Connect also bootstraps
// the bookings collection, its indexes and its expiry rule.
type Connector[C any] interface {
	Connect(ctx context.Context, target string) (C, error)
	Ping(ctx context.Context, conn C) error
	Close(ctx context.Context, conn C) error
}

type Options struct {
	ConnectTimeout time.Duration
	// ValidateInterval is how long a cached connection is trusted before it is pinged again.
	ValidateInterval time.Duration
}

// Gateway owns one lazily established connection shared by all callers.
type Gateway[C any] struct {
	target    string
	connector Connector[C]
	opts      Options
	now       func() time.Time

	mu        sync.Mutex
	conn      C
	connected bool
	checkedAt time.Time
}

func NewGateway[C any](target string, connector Connector[C], opts Options) *Gateway[C] {
	return &Gateway[C]{
		target:    target,
		connector: connector,
		opts:      opts,
		now:       time.Now,
	}
}

func (g *Gateway[C]) boundedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.opts.ConnectTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.opts.ConnectTimeout)
}

// Acquire returns the cached connection, establishing it on first use or when
// a periodic ping shows it is no longer live.
func (g *Gateway[C]) Acquire(ctx context.Context) (C, error) {
	var zero C
	if g.target == "" {
		return zero, ErrNotConfigured
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.connected {
		if g.opts.ValidateInterval <= 0 || g.now().Sub(g.checkedAt) < g.opts.ValidateInterval {
			return g.conn, nil
		}
		pingCtx, cancel := g.boundedContext(ctx)
		err := g.connector.Ping(pingCtx, g.conn)
		cancel()
		if err == nil {
			g.checkedAt = g.now()
			return g.conn, nil
		}
		log.Printf("store connection check failed, reconnecting: %v", err)
		if err := g.connector.Close(ctx, g.conn); err != nil {
			log.Printf("close stale store connection: %v", err)
		}
		g.conn, g.connected = zero, false
	}

	connectCtx, cancel := g.boundedContext(ctx)
	defer cancel()
	conn, err := g.connector.Connect(connectCtx, g.target)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	g.conn, g.connected, g.checkedAt = conn, true, g.now()
	return conn, nil
}

// Close releases the cached connection, if any.
func (g *Gateway[C]) Close(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected {
		return nil
	}
	var zero C
	conn := g.conn
	g.conn, g.connected = zero, false
	return g.connector.Close(ctx, conn)
}
