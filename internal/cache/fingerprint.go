// Package cache provides content-addressed memoization of step results: a
// deterministic fingerprint over (kind, normalized configuration, resolved
// input content), a mandatory in-memory LRU layer, an optional on-disk
// layer, and a store composing them with per-fingerprint single-flight
// coalescing of misses.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/pulse-analytics/pulse-go/internal/workflow"
)

// Fingerprint is the hex digest keying a memoized step result. Equal
// fingerprints imply the step would produce an equivalent result.
type Fingerprint string

// InputDigest names one resolved input and the digest of its content.
type InputDigest struct {
	Name   string `json:"name"`
	Digest string `json:"digest"`
}

// fingerprintDoc is the canonical document hashed into a Fingerprint.
// Struct field order is fixed, the config has defaults materialized, and
// inputs are sorted by name, so the encoding is byte-stable.
type fingerprintDoc struct {
	Kind   workflow.Kind   `json:"kind"`
	Config workflow.Config `json:"config"`
	Fast   bool            `json:"fast"`
	Inputs []InputDigest   `json:"inputs"`
}

// Compute derives the fingerprint of a step invocation from its kind, its
// configuration (normalized first), the effective fast flag, and the
// content digests of every resolved input.
func Compute(kind workflow.Kind, cfg workflow.Config, fast bool, inputs []InputDigest) (Fingerprint, error) {
	sorted := append([]InputDigest(nil), inputs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	doc := fingerprintDoc{Kind: kind, Config: cfg.Normalized(), Fast: fast, Inputs: sorted}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("fingerprinting %s step: %w", kind, err)
	}
	sum := sha256.Sum256(raw)
	return Fingerprint(hex.EncodeToString(sum[:])), nil
}

// DigestItems computes the content identity of an input item sequence.
// Items are length-prefixed so ["ab"] and ["a","b"] digest differently.
func DigestItems(items []string) string {
	h := sha256.New()
	var buf [8]byte
	for _, item := range items {
		binary.BigEndian.PutUint64(buf[:], uint64(len(item)))
		h.Write(buf[:])
		h.Write([]byte(item))
	}
	return hex.EncodeToString(h.Sum(nil))
}
