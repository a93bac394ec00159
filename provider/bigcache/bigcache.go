package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/cacheaside/internal/wire"
	pr "github.com/unkn0wn-root/cacheaside/provider"
)

// Provider keeps entries in a BigCache instance. BigCache only knows a global
// LifeWindow, so per-entry deadlines travel in a wire envelope and are checked on read.
type Provider struct {
	c   *bc.BigCache
	now func() time.Time
}

var _ pr.Store = (*Provider)(nil)

type Config struct {
	LifeWindow         time.Duration // upper bound for any entry; 0 => 24h
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Provider, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = 24 * time.Hour
	}
	conf := bc.DefaultConfig(life)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	conf.Verbose = false
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &Provider{c: c, now: time.Now}, nil
}

func (p *Provider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := pr.CheckContext(ctx); err != nil {
		return nil, false, err
	}
	e, ok, err := p.load(key)
	if err != nil || !ok {
		return nil, false, err
	}
	if e.Sliding > 0 {
		if err := p.touch(key, e); err != nil {
			return nil, false, err
		}
	}
	out := make([]byte, len(e.Payload))
	copy(out, e.Payload)
	return out, true, nil
}

func (p *Provider) Set(ctx context.Context, key string, value []byte, opts pr.EntryOptions) error {
	if err := pr.CheckContext(ctx); err != nil {
		return err
	}
	now := p.now()
	abs, sld := opts.Deadlines(now)
	e := wire.Entry{Absolute: abs, Sliding: sld, Payload: value}
	if ttl := pr.ExpiryFrom(now, abs, sld); ttl > 0 {
		e.Expires = now.Add(ttl)
	}
	return p.c.Set(key, wire.Encode(e))
}

func (p *Provider) Refresh(ctx context.Context, key string) error {
	if err := pr.CheckContext(ctx); err != nil {
		return err
	}
	e, ok, err := p.load(key)
	if err != nil || !ok || e.Sliding <= 0 {
		return err
	}
	return p.touch(key, e)
}

func (p *Provider) Remove(ctx context.Context, key string) error {
	if err := pr.CheckContext(ctx); err != nil {
		return err
	}
	err := p.c.Delete(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (p *Provider) Close(_ context.Context) error {
	return p.c.Close()
}

// load returns the decoded entry; expired or corrupt entries are dropped and reported as a miss.
func (p *Provider) load(key string) (wire.Entry, bool, error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return wire.Entry{}, false, nil
	}
	if err != nil {
		return wire.Entry{}, false, err
	}
	e, err := wire.Decode(b)
	if err != nil || e.Expired(p.now()) {
		_ = p.c.Delete(key)
		return wire.Entry{}, false, nil
	}
	return e, true, nil
}

func (p *Provider) touch(key string, e wire.Entry) error {
	now := p.now()
	ttl := pr.ExpiryFrom(now, e.Absolute, e.Sliding)
	if ttl < 0 {
		_ = p.c.Delete(key)
		return nil
	}
	e.Expires = now.Add(ttl)
	return p.c.Set(key, wire.Encode(e))
}
