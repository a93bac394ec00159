package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pr "github.com/unkn0wn-root/cacheaside/provider"
)

var ErrNilClient = errors.New("redis provider: nil client")

// Hash fields of a stored entry. Deadlines are unix milliseconds, -1 when unset.
const (
	fieldAbsolute = "absexp"
	fieldSliding  = "sldexp"
	fieldData     = "data"

	notPresent int64 = -1
)

type Redis struct {
	rdb         goredis.UniversalClient
	prefix      string
	closeClient bool
	now         func() time.Time
}

var _ pr.Store = (*Redis)(nil)

type Config struct {
	Client goredis.UniversalClient
	// InstanceName is prepended verbatim to every key, e.g. "app:prod:".
	InstanceName string
	CloseClient  bool // set true only if this provider exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{
		rdb:         cfg.Client,
		prefix:      cfg.InstanceName,
		closeClient: cfg.CloseClient,
		now:         time.Now,
	}, nil
}

func (p *Redis) key(k string) string { return p.prefix + k }

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := pr.CheckContext(ctx); err != nil {
		return nil, false, err
	}
	return p.touch(ctx, p.key(key), true)
}

func (p *Redis) Set(ctx context.Context, key string, value []byte, opts pr.EntryOptions) error {
	if err := pr.CheckContext(ctx); err != nil {
		return err
	}
	k := p.key(key)
	now := p.now()
	abs, sld := opts.Deadlines(now)
	ttl := pr.ExpiryFrom(now, abs, sld)

	_, err := p.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, k,
			fieldAbsolute, unixMilliOrNone(abs),
			fieldSliding, durationMilliOrNone(sld),
			fieldData, value,
		)
		if ttl > 0 {
			pipe.PExpire(ctx, k, ttl)
		} else {
			pipe.Persist(ctx, k)
		}
		return nil
	})
	return err
}

func (p *Redis) Refresh(ctx context.Context, key string) error {
	if err := pr.CheckContext(ctx); err != nil {
		return err
	}
	_, _, err := p.touch(ctx, p.key(key), false)
	return err
}

func (p *Redis) Remove(ctx context.Context, key string) error {
	if err := pr.CheckContext(ctx); err != nil {
		return err
	}
	return p.rdb.Del(ctx, p.key(key)).Err()
}

// Close releases the underlying redis client only when this provider owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

// touch reads the entry under WATCH and re-arms its sliding window in the same
// transaction, so a concurrent Set never inherits a TTL computed from the old entry.
// If the key changes in between, the transaction aborts and the writer's TTL stands.
func (p *Redis) touch(ctx context.Context, k string, withData bool) ([]byte, bool, error) {
	var (
		data []byte
		hit  bool
	)
	err := p.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		fields := []string{fieldAbsolute, fieldSliding}
		if withData {
			fields = append(fields, fieldData)
		}
		vals, err := tx.HMGet(ctx, k, fields...).Result()
		if err != nil {
			return err
		}
		if len(vals) != len(fields) || vals[0] == nil || (withData && vals[2] == nil) {
			return nil // miss
		}
		if withData {
			s, ok := vals[2].(string)
			if !ok {
				return fmt.Errorf("redis provider: unexpected data type %T for %q", vals[2], k)
			}
			data = []byte(s)
		}

		abs, sld, err := parseMeta(vals[0], vals[1])
		if err != nil {
			return fmt.Errorf("redis provider: %q: %w", k, err)
		}
		ttl := pr.ExpiryFrom(p.now(), abs, sld)
		if ttl >= 0 {
			hit = true
		}
		if ttl >= 0 && sld <= 0 {
			return nil
		}
		// server expiry lags the absolute deadline by clock skew at most
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			if ttl < 0 {
				pipe.Del(ctx, k)
			} else {
				pipe.PExpire(ctx, k, ttl)
			}
			return nil
		})
		return err
	}, k)

	if errors.Is(err, goredis.TxFailedErr) {
		// replaced or removed concurrently; what was read is still a valid snapshot
		err = nil
	}
	if err != nil {
		return nil, false, err
	}
	if !hit {
		return nil, false, nil
	}
	return data, true, nil
}

func parseMeta(absRaw, sldRaw any) (time.Time, time.Duration, error) {
	abs, err := parseInt(absRaw)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("absolute expiration: %w", err)
	}
	sld, err := parseInt(sldRaw)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("sliding expiration: %w", err)
	}
	var absolute time.Time
	if abs != notPresent {
		absolute = time.UnixMilli(abs)
	}
	var sliding time.Duration
	if sld != notPresent {
		sliding = time.Duration(sld) * time.Millisecond
	}
	return absolute, sliding, nil
}

func parseInt(v any) (int64, error) {
	if v == nil {
		return notPresent, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected type %T", v)
	}
	return strconv.ParseInt(s, 10, 64)
}

func unixMilliOrNone(t time.Time) int64 {
	if t.IsZero() {
		return notPresent
	}
	return t.UnixMilli()
}

func durationMilliOrNone(d time.Duration) int64 {
	if d <= 0 {
		return notPresent
	}
	return d.Milliseconds()
}
