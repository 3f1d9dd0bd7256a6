package smbkit

import (
	"context"
	"sync"
	"time"
)

// ConnPool caches authenticated clients for reuse across sequential
// transfers to the same server. Checkout is strictly exclusive: a client
// carries one request at a time, so the pool never shares a connection
// between concurrent callers.
type ConnPool struct {
	cfg *Config

	mu     sync.Mutex
	idle   []*pooledClient
	closed bool
}

// pooledClient wraps a client with reuse metadata.
type pooledClient struct {
	client   *Client
	lastUsed time.Time
}

// NewConnPool creates a pool for cfg.
func NewConnPool(cfg *Config) *ConnPool {
	cfg.setDefaults()
	return &ConnPool{cfg: cfg}
}

// Get returns an authenticated client, reusing an idle connection when
// one is still fresh and dialing otherwise.
func (p *ConnPool) Get(ctx context.Context) (*Client, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrConnectionClosed
	}

	for len(p.idle) > 0 {
		pc := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]

		if time.Since(pc.lastUsed) < p.cfg.IdleTimeout && pc.client.handler != nil {
			p.mu.Unlock()
			return pc.client, nil
		}

		// Connection expired; close it and keep scanning.
		pc.client.Close()
	}
	p.mu.Unlock()

	return DialContext(ctx, p.cfg)
}

// Put returns a client to the pool. Dead or surplus clients are closed.
func (p *ConnPool) Put(c *Client) {
	if c == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || c.handler == nil || len(p.idle) >= p.cfg.MaxIdle {
		c.Close()
		return
	}

	p.idle = append(p.idle, &pooledClient{
		client:   c,
		lastUsed: time.Now(),
	})
}

// Close closes all idle connections. The pool cannot be used after.
func (p *ConnPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for _, pc := range p.idle {
		pc.client.Close()
	}
	p.idle = nil

	return nil
}

// Stats reports pool state for monitoring.
type PoolStats struct {
	IdleConnections int
	IsClosed        bool
}

// Stats returns current pool statistics.
func (p *ConnPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return PoolStats{
		IdleConnections: len(p.idle),
		IsClosed:        p.closed,
	}
}
