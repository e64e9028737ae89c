package world

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlushSnapshots(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) { cfg.InitialPlayerEnergy = 500 })
	ctx := context.Background()

	env.mustClaim(t, "alice", 0, 0)
	env.mustClaim(t, "alice", 1, 0)
	env.mustClaim(t, "bob", 5, 5)

	count, err := env.engine.FlushSnapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	row, ok := env.sink.row("0:0")
	require.True(t, ok)
	assert.Equal(t, "alice", row.OwnerID)
	row, ok = env.sink.row("5:5")
	require.True(t, ok)
	assert.Equal(t, "bob", row.OwnerID)
}

func TestFlushSnapshotsIsIdempotent(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.mustClaim(t, "alice", 0, 0)

	_, err := env.engine.FlushSnapshots(ctx)
	require.NoError(t, err)
	first, ok := env.sink.row("0:0")
	require.True(t, ok)

	count, err := env.engine.FlushSnapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	second, ok := env.sink.row("0:0")
	require.True(t, ok)
	assert.Equal(t, first, second, "re-flushing unchanged state rewrites identical rows")
}

func TestFlushSnapshotsBatches(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.InitialPlayerEnergy = 500
		cfg.SnapshotBatchSize = 2
	})
	ctx := context.Background()

	for r := 0; r < 5; r++ {
		env.mustClaim(t, "alice", 0, r)
	}

	count, err := env.engine.FlushSnapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	env.sink.mu.Lock()
	defer env.sink.mu.Unlock()
	require.Len(t, env.sink.batches, 3)
	assert.Len(t, env.sink.batches[0], 2)
	assert.Len(t, env.sink.batches[1], 2)
	assert.Len(t, env.sink.batches[2], 1)
}

func TestFlushSnapshotsNilSink(t *testing.T) {
	env := newTestEnv(t, nil)
	env.engine.sink = nil

	env.mustClaim(t, "alice", 0, 0)
	count, err := env.engine.FlushSnapshots(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

type recorderArchiver struct {
	mu    sync.Mutex
	calls []int
}

func (a *recorderArchiver) ArchiveWorld(_ context.Context, _ int64, tiles []Tile) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, len(tiles))
	return nil
}

func TestFlushSnapshotsArchiveCadence(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) { cfg.ArchiveEveryFlushes = 2 })
	arch := &recorderArchiver{}
	env.engine.Archiver = arch
	ctx := context.Background()

	env.mustClaim(t, "alice", 0, 0)

	_, err := env.engine.FlushSnapshots(ctx)
	require.NoError(t, err)
	arch.mu.Lock()
	assert.Empty(t, arch.calls, "first flush is not an archive flush")
	arch.mu.Unlock()

	_, err = env.engine.FlushSnapshots(ctx)
	require.NoError(t, err)
	arch.mu.Lock()
	require.Len(t, arch.calls, 1)
	assert.Equal(t, 1, arch.calls[0], "archive carries the full tile set")
	arch.mu.Unlock()
}

type failingSink struct{}

func (failingSink) UpsertTiles(context.Context, []Tile) error {
	return errors.New("sink down")
}

func TestLoopsFlushInBackground(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.RechargeIntervalMs = 3600000 // keep the recharge loop quiet
		cfg.SnapshotIntervalMs = 10
	})

	env.mustClaim(t, "alice", 0, 0)

	env.engine.Start()
	env.engine.Start() // second Start is a no-op
	defer env.engine.Close()

	require.Eventually(t, func() bool {
		_, ok := env.sink.row("0:0")
		return ok
	}, 2*time.Second, 10*time.Millisecond, "snapshot loop should flush the claimed tile")

	env.engine.Close()
	env.engine.Close() // and closing twice is fine
}

func TestLoopsReportErrorsAndKeepRunning(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.RechargeIntervalMs = 3600000
		cfg.SnapshotIntervalMs = 10
	})
	env.engine.sink = failingSink{}

	var mu sync.Mutex
	failures := 0
	env.engine.OnError = func(error) {
		mu.Lock()
		failures++
		mu.Unlock()
	}

	env.mustClaim(t, "alice", 0, 0)
	env.engine.Start()
	defer env.engine.Close()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return failures >= 2
	}, 2*time.Second, 10*time.Millisecond, "the loop keeps ticking after a sink failure")
}
