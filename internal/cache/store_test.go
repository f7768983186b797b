package cache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-analytics/pulse-go/internal/transport"
	"github.com/pulse-analytics/pulse-go/internal/workflow"
)

func testResult(t *testing.T, payload string) *transport.Result {
	t.Helper()
	return transport.NewResult(workflow.KindSentiment, []byte(payload))
}

func TestStore_ComputeOnMissThenHit(t *testing.T) {
	t.Parallel()

	store := NewStore(NewMemory(0))
	fp := Fingerprint("fp-1")
	want := testResult(t, `{"results":[]}`)

	var calls atomic.Int32
	compute := func(context.Context) (*transport.Result, error) {
		calls.Add(1)
		return want, nil
	}

	res, hit, err := store.GetOrCompute(context.Background(), fp, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, want, res)

	res, hit, err = store.GetOrCompute(context.Background(), fp, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, want, res)
	assert.Equal(t, int32(1), calls.Load())
}

func TestStore_CoalescesConcurrentMisses(t *testing.T) {
	t.Parallel()

	store := NewStore(NewMemory(0))
	fp := Fingerprint("fp-flight")
	want := testResult(t, `{}`)

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) (*transport.Result, error) {
		calls.Add(1)
		<-release
		return want, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	started := make(chan struct{}, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started <- struct{}{}
			res, _, err := store.GetOrCompute(context.Background(), fp, compute)
			assert.NoError(t, err)
			assert.Equal(t, want, res)
		}()
	}
	for i := 0; i < callers; i++ {
		<-started
	}
	close(release)
	wg.Wait()

	// Callers that raced past the first lookup share one flight; stragglers
	// hit the populated layer. The computation itself never runs twice.
	assert.Equal(t, int32(1), calls.Load())
}

func TestStore_PromotesDiskHitsToMemory(t *testing.T) {
	t.Parallel()

	disk, err := NewDisk(t.TempDir())
	require.NoError(t, err)
	mem := NewMemory(0)
	store := NewStore(mem, disk)

	fp := Fingerprint("fp-promote")
	want := testResult(t, `{"results":[]}`)
	disk.Put(fp, want)

	_, ok := mem.Get(fp)
	require.False(t, ok)

	res, hit := store.Lookup(fp)
	require.True(t, hit)
	assert.Equal(t, want.Payload, res.Payload)

	promoted, ok := mem.Get(fp)
	require.True(t, ok)
	assert.Equal(t, want.Payload, promoted.Payload)
}

func TestStore_ComputeErrorIsNotCached(t *testing.T) {
	t.Parallel()

	store := NewStore(NewMemory(0))
	fp := Fingerprint("fp-err")

	_, _, err := store.GetOrCompute(context.Background(), fp, func(context.Context) (*transport.Result, error) {
		return nil, assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	want := testResult(t, `{}`)
	res, hit, err := store.GetOrCompute(context.Background(), fp, func(context.Context) (*transport.Result, error) {
		return want, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, want, res)
}

func TestMemory_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	mem := NewMemory(2)
	a, b, c := Fingerprint("a"), Fingerprint("b"), Fingerprint("c")
	mem.Put(a, testResult(t, `1`))
	mem.Put(b, testResult(t, `2`))

	_, ok := mem.Get(a) // refresh a
	require.True(t, ok)

	mem.Put(c, testResult(t, `3`))

	_, ok = mem.Get(b)
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = mem.Get(a)
	assert.True(t, ok)
	_, ok = mem.Get(c)
	assert.True(t, ok)
}

func TestDisk_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	disk, err := NewDisk(dir)
	require.NoError(t, err)

	fp := Fingerprint("fp-disk")
	want := testResult(t, `{"results":[{"sentiment":"positive","confidence":0.9}]}`)
	disk.Put(fp, want)

	reopened, err := NewDisk(dir)
	require.NoError(t, err)
	got, ok := reopened.Get(fp)
	require.True(t, ok)
	assert.Equal(t, want.Kind, got.Kind)
	assert.JSONEq(t, string(want.Payload), string(got.Payload))
}

func TestDisk_CorruptEntryIsAMiss(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	disk, err := NewDisk(dir)
	require.NoError(t, err)

	fp := Fingerprint("fp-corrupt")
	disk.Put(fp, testResult(t, `{}`))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, entries[0].Name()), []byte("not json"), 0o644))

	_, ok := disk.Get(fp)
	assert.False(t, ok)
}

func TestDisk_MissingEntryIsAMiss(t *testing.T) {
	t.Parallel()

	disk, err := NewDisk(t.TempDir())
	require.NoError(t, err)
	_, ok := disk.Get(Fingerprint("absent"))
	assert.False(t, ok)
}
