package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"
)

// Source yields the current rate table.
type Source interface {
	Rates(ctx context.Context) (Table, error)
}

// StaticSource serves rates from configuration.
type StaticSource struct {
	table Table
}

// NewStaticSource wraps configured rates.
func NewStaticSource(base string, rates map[string]float64) *StaticSource {
	return &StaticSource{table: NewTable(base, rates, time.Now(), "config")}
}

func (s *StaticSource) Rates(context.Context) (Table, error) {
	return s.table, nil
}

// RemoteSource fetches rates from an HTTP endpoint returning
// {"base":"EUR","date":"2025-01-31","rates":{"USD":1.08}} where each rate is
// units of the currency per one unit of base.
type RemoteSource struct {
	client *resty.Client
	url    string
	base   string
}

type remotePayload struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// NewRemoteSource builds a resty-backed source.
func NewRemoteSource(url, base string) *RemoteSource {
	client := resty.New().
		SetHeader("Accept", "application/json").
		SetTimeout(10 * time.Second)
	return &RemoteSource{client: client, url: url, base: normalize(base)}
}

func (s *RemoteSource) Rates(ctx context.Context) (Table, error) {
	payload := new(remotePayload)
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("base", s.base).
		SetResult(payload).
		Get(s.url)
	if err != nil {
		return Table{}, fmt.Errorf("fetch fx rates: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return Table{}, fmt.Errorf("fx rates endpoint: status %d", resp.StatusCode())
	}
	if payload.Base != "" && normalize(payload.Base) != s.base {
		return Table{}, fmt.Errorf("fx rates endpoint returned base %s, want %s", payload.Base, s.base)
	}
	inverted := make(map[string]float64, len(payload.Rates))
	for code, perBase := range payload.Rates {
		if perBase > 0 {
			inverted[code] = 1 / perBase
		}
	}
	asOf := time.Now()
	if d, err := time.Parse("2006-01-02", payload.Date); err == nil {
		asOf = d
	}
	return NewTable(s.base, inverted, asOf, "remote"), nil
}

const cacheKey = "fx:rates"

// CachedSource keeps the last fetched table in Redis and falls back to the
// wrapped source on a miss.
type CachedSource struct {
	client *redis.Client
	next   Source
	ttl    time.Duration
}

// NewCachedSource wraps next with a Redis cache.
func NewCachedSource(client *redis.Client, next Source, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedSource{client: client, next: next, ttl: ttl}
}

func (s *CachedSource) Rates(ctx context.Context) (Table, error) {
	raw, err := s.client.Get(ctx, cacheKey).Bytes()
	if err == nil {
		var table Table
		if err := json.Unmarshal(raw, &table); err == nil {
			return table, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return s.next.Rates(ctx)
	}
	return s.Refresh(ctx)
}

// Refresh pulls from the wrapped source and stores the result.
func (s *CachedSource) Refresh(ctx context.Context) (Table, error) {
	table, err := s.next.Rates(ctx)
	if err != nil {
		return Table{}, err
	}
	payload, err := json.Marshal(table)
	if err != nil {
		return Table{}, err
	}
	if err := s.client.Set(ctx, cacheKey, payload, s.ttl).Err(); err != nil {
		return table, fmt.Errorf("store fx rates: %w", err)
	}
	return table, nil
}

// FallbackSource tries primary and uses secondary when it fails.
type FallbackSource struct {
	primary   Source
	secondary Source
}

// NewFallbackSource chains two sources.
func NewFallbackSource(primary, secondary Source) *FallbackSource {
	return &FallbackSource{primary: primary, secondary: secondary}
}

func (s *FallbackSource) Rates(ctx context.Context) (Table, error) {
	table, err := s.primary.Rates(ctx)
	if err == nil {
		return table, nil
	}
	fallback, ferr := s.secondary.Rates(ctx)
	if ferr != nil {
		return Table{}, errors.Join(err, ferr)
	}
	return fallback, nil
}
