// Package dedupe answers "is this phone number already a lead?".
// Postgres is authoritative. An optional Redis cache remembers numbers known
// to exist for a bounded time, so a number scrubbed by an anonymization job
// stops being reported as a duplicate once its entry expires.
package dedupe

import (
	"context"
	"fmt"

	"callcenter_backend/platform/logger"
	"callcenter_backend/platform/metrics"
	"callcenter_backend/platform/phone"
)

// Store is the authoritative phone lookup.
type Store interface {
	ExistingPhones(ctx context.Context, phones []string) ([]string, error)
}

// Cache holds phone numbers known to exist.
type Cache interface {
	Known(ctx context.Context, phones []string) (map[string]struct{}, error)
	Add(ctx context.Context, phones []string) error
}

// Detector checks phone numbers for duplicates.
type Detector struct {
	store   Store
	cache   Cache
	log     *logger.Logger
	metrics *metrics.Metrics
}

// New creates a detector. cache and m may be nil.
func New(store Store, cache Cache, log *logger.Logger, m *metrics.Metrics) *Detector {
	return &Detector{store: store, cache: cache, log: log, metrics: m}
}

// Exists reports whether a lead with this phone number exists.
// The input is whitespace-normalized first.
func (d *Detector) Exists(ctx context.Context, rawPhone string) (bool, error) {
	normalized := phone.Normalize(rawPhone)
	if normalized == "" {
		return false, nil
	}
	found, err := d.BulkExists(ctx, []string{normalized})
	if err != nil {
		return false, err
	}
	_, ok := found[normalized]
	return ok, nil
}

// BulkExists returns the subset of phones that already belong to a lead,
// keyed by their normalized form.
func (d *Detector) BulkExists(ctx context.Context, phones []string) (map[string]struct{}, error) {
	unique := make([]string, 0, len(phones))
	seen := make(map[string]struct{}, len(phones))
	for _, p := range phones {
		normalized := phone.Normalize(p)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		unique = append(unique, normalized)
	}

	found := make(map[string]struct{})
	if len(unique) == 0 {
		return found, nil
	}

	misses := unique
	if d.cache != nil {
		cached, err := d.cache.Known(ctx, unique)
		if err != nil {
			d.warn("duplicate cache lookup failed", err)
			d.record("error", 1)
		} else {
			misses = make([]string, 0, len(unique)-len(cached))
			for _, p := range unique {
				if _, ok := cached[p]; ok {
					found[p] = struct{}{}
					continue
				}
				misses = append(misses, p)
			}
			d.record("hit", len(cached))
			d.record("miss", len(misses))
		}
	}

	if len(misses) == 0 {
		return found, nil
	}

	existing, err := d.store.ExistingPhones(ctx, misses)
	if err != nil {
		return nil, fmt.Errorf("failed to check duplicate phones: %w", err)
	}
	for _, p := range existing {
		found[p] = struct{}{}
	}

	if len(existing) > 0 {
		d.Remember(ctx, existing)
	}
	return found, nil
}

// Remember records phones that are now known to exist. Cache failures are
// logged and otherwise ignored.
func (d *Detector) Remember(ctx context.Context, phones []string) {
	if d.cache == nil || len(phones) == 0 {
		return
	}
	if err := d.cache.Add(ctx, phones); err != nil {
		d.warn("duplicate cache write failed", err)
	}
}

func (d *Detector) record(result string, n int) {
	if d.metrics == nil || n == 0 {
		return
	}
	d.metrics.DuplicateCacheLookup.WithLabelValues(result).Add(float64(n))
}

func (d *Detector) warn(msg string, err error) {
	if d.log == nil {
		return
	}
	d.log.Warn(msg, "error", err)
}
