package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	pr "github.com/unkn0wn-root/cacheaside/provider"
)

// entry is what ristretto holds; the value bytes are never mutated.
type entry struct {
	value    []byte
	absolute time.Time
	sliding  time.Duration
}

type Provider struct {
	c   *rc.Cache
	now func() time.Time
}

var _ pr.Store = (*Provider)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
	// Cost of each entry is its value length.
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c, now: time.Now}, nil
}

func (p *Provider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := pr.CheckContext(ctx); err != nil {
		return nil, false, err
	}
	e, ok := p.load(key)
	if !ok {
		return nil, false, nil
	}
	if e.sliding > 0 {
		p.store(key, e)
	}
	return e.value, true, nil
}

// Set is eventually visible: ristretto applies writes through its buffers.
// Callers that need read-your-write in tests should call Wait.
func (p *Provider) Set(ctx context.Context, key string, value []byte, opts pr.EntryOptions) error {
	if err := pr.CheckContext(ctx); err != nil {
		return err
	}
	abs, sld := opts.Deadlines(p.now())
	if !p.store(key, &entry{value: value, absolute: abs, sliding: sld}) {
		return errors.New("ristretto: write rejected")
	}
	return nil
}

func (p *Provider) Refresh(ctx context.Context, key string) error {
	if err := pr.CheckContext(ctx); err != nil {
		return err
	}
	if e, ok := p.load(key); ok && e.sliding > 0 {
		p.store(key, e)
	}
	return nil
}

func (p *Provider) Remove(ctx context.Context, key string) error {
	if err := pr.CheckContext(ctx); err != nil {
		return err
	}
	p.c.Del(key)
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Wait blocks until buffered writes are applied.
func (p *Provider) Wait() { p.c.Wait() }

// Helper to expose metrics if desired by the application (not part of provider.Store).
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }

func (p *Provider) load(key string) (*entry, bool) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false
	}
	e, _ := v.(*entry)
	if e == nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return nil, false
	}
	if !e.absolute.IsZero() && !p.now().Before(e.absolute) {
		p.c.Del(key)
		return nil, false
	}
	return e, true
}

func (p *Provider) store(key string, e *entry) bool {
	ttl := pr.ExpiryFrom(p.now(), e.absolute, e.sliding)
	if ttl < 0 {
		p.c.Del(key)
		return true
	}
	return p.c.SetWithTTL(key, e, int64(len(e.value))+1, ttl)
}
