package worldgen

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hexlands/pkg/world"
)

type recordingRegistrar struct {
	calls []string
}

func (r *recordingRegistrar) RegisterNexus(_ context.Context, q, rr, level int) (*world.Tile, error) {
	if level < 1 || level > 5 {
		return nil, fmt.Errorf("level %d out of range", level)
	}
	r.calls = append(r.calls, fmt.Sprintf("%d:%d@%d", q, rr, level))
	return nil, nil
}

func generate(t *testing.T, opts Options) []string {
	t.Helper()
	reg := &recordingRegistrar{}
	n, err := Seed(context.Background(), reg, opts)
	require.NoError(t, err)
	require.Equal(t, n, len(reg.calls))
	return reg.calls
}

func TestSeedIsDeterministic(t *testing.T) {
	opts := DefaultOptions()
	opts.Threshold = 0.75 // dense enough to produce hits on a small span
	opts.RadiusChunks = 1

	first := generate(t, opts)
	second := generate(t, opts)
	require.NotEmpty(t, first, "a 0.75 threshold over two chunks should spawn nexuses")
	assert.Equal(t, first, second, "the same seed must yield the same layout")
}

func TestSeedVariesWithSeed(t *testing.T) {
	opts := DefaultOptions()
	opts.Threshold = 0.75
	opts.RadiusChunks = 1

	first := generate(t, opts)
	opts.Seed = 99
	other := generate(t, opts)
	assert.NotEqual(t, first, other, "different seeds should move the nexuses")
}

func TestSeedHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := Seed(ctx, &recordingRegistrar{}, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}

func TestSeedStopsOnRegistrarError(t *testing.T) {
	opts := DefaultOptions()
	opts.Threshold = 0.5 // plenty of hits
	opts.RadiusChunks = 1

	boom := fmt.Errorf("registrar down")
	failing := registrarFunc(func(context.Context, int, int, int) (*world.Tile, error) {
		return nil, boom
	})
	_, err := Seed(context.Background(), failing, opts)
	assert.ErrorIs(t, err, boom)
}

type registrarFunc func(ctx context.Context, q, r, level int) (*world.Tile, error)

func (f registrarFunc) RegisterNexus(ctx context.Context, q, r, level int) (*world.Tile, error) {
	return f(ctx, q, r, level)
}
