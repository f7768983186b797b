package cache

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/pulse-analytics/pulse-go/internal/ctxlog"
	"github.com/pulse-analytics/pulse-go/internal/transport"
)

// Layer is one cache level. Both the mandatory in-memory layer and the
// optional persistent backend satisfy it.
type Layer interface {
	Get(fp Fingerprint) (*transport.Result, bool)
	Put(fp Fingerprint, res *transport.Result)
}

// Store composes cache layers, consulted in order, and coalesces concurrent
// misses for the same fingerprint into a single computation. Entries never
// expire; eviction is the in-memory LRU's concern and staleness the
// caller's. Unrelated fingerprints proceed independently — there is no
// global lock around the compute path.
type Store struct {
	layers []Layer
	group  singleflight.Group
}

// NewStore builds a store over the given layers (first is consulted first).
// A store with no layers still coalesces concurrent computations.
func NewStore(layers ...Layer) *Store {
	return &Store{layers: layers}
}

// GetOrCompute returns the result for fp, computing it at most once across
// concurrent callers on miss. A layer hit is promoted to the layers in
// front of it; a computed result is written back to every layer. The hit
// flag reports whether any cache layer already held the result.
func (s *Store) GetOrCompute(ctx context.Context, fp Fingerprint, compute func(context.Context) (*transport.Result, error)) (*transport.Result, bool, error) {
	if res, idx, ok := s.lookup(fp); ok {
		s.promote(fp, res, idx)
		return res, true, nil
	}

	v, err, shared := s.group.Do(string(fp), func() (any, error) {
		// Re-check under the flight: another caller may have finished and
		// populated the layers between our miss and acquiring the flight.
		if res, idx, ok := s.lookup(fp); ok {
			s.promote(fp, res, idx)
			return res, nil
		}
		res, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		for _, l := range s.layers {
			l.Put(fp, res)
		}
		return res, nil
	})
	if err != nil {
		return nil, false, err
	}
	if shared {
		ctxlog.FromContext(ctx).Debug("Coalesced concurrent cache miss.", "fingerprint", string(fp))
	}
	return v.(*transport.Result), false, nil
}

// Lookup checks the layers without computing.
func (s *Store) Lookup(fp Fingerprint) (*transport.Result, bool) {
	res, idx, ok := s.lookup(fp)
	if ok {
		s.promote(fp, res, idx)
	}
	return res, ok
}

func (s *Store) lookup(fp Fingerprint) (*transport.Result, int, bool) {
	for i, l := range s.layers {
		if res, ok := l.Get(fp); ok {
			return res, i, true
		}
	}
	return nil, 0, false
}

func (s *Store) promote(fp Fingerprint, res *transport.Result, foundAt int) {
	for i := 0; i < foundAt; i++ {
		s.layers[i].Put(fp, res)
	}
}
