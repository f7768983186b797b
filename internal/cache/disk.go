package cache

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pulse-analytics/pulse-go/internal/transport"
)

// Disk is the optional persistent cache layer: one JSON document per
// fingerprint under a directory. It is keyed identically to the in-memory
// layer, so the two are interchangeable behind the Layer interface.
//
// A missing, unreadable, or corrupt entry is a miss, never an error: stale
// or damaged cache state must not fail an otherwise healthy run.
type Disk struct {
	dir string
}

// NewDisk creates (if needed) the cache directory and returns the layer.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Disk{dir: dir}, nil
}

// Get reads the entry for fp. Corruption is treated as a miss.
func (d *Disk) Get(fp Fingerprint) (*transport.Result, bool) {
	raw, err := os.ReadFile(d.path(fp))
	if err != nil {
		return nil, false
	}
	var res transport.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, false
	}
	if len(res.Payload) == 0 {
		return nil, false
	}
	return &res, true
}

// Put writes the entry for fp. Writes go through a temp file and rename so
// a concurrent reader never observes a partial entry. Failures are dropped:
// persistence is best-effort.
func (d *Disk) Put(fp Fingerprint, res *transport.Result) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	tmp, err := os.CreateTemp(d.dir, "entry-*.tmp")
	if err != nil {
		return
	}
	name := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(name)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return
	}
	if err := os.Rename(name, d.path(fp)); err != nil {
		os.Remove(name)
	}
}

func (d *Disk) path(fp Fingerprint) string {
	return filepath.Join(d.dir, string(fp)+".json")
}
