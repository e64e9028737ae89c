// Package worldgen seeds the world's nexus cores from deterministic
// noise. The same seed always produces the same layout, so re-running the
// generator against an existing world only re-registers the same points.
package worldgen

import (
	"context"

	"github.com/ojrac/opensimplex-go"

	"hexlands/pkg/world"
)

// Registrar is the slice of the engine the generator needs.
type Registrar interface {
	RegisterNexus(ctx context.Context, q, r, level int) (*world.Tile, error)
}

// Options shape the noise field and the lattice it is sampled on.
type Options struct {
	Seed int64 `yaml:"seed"`

	// RadiusChunks spans the seeded area around the origin, in chunks.
	RadiusChunks int `yaml:"radius_chunks"`
	ChunkSize    int `yaml:"chunk_size"`

	// Spacing is the lattice step in tiles. Larger steps mean sparser
	// candidate points.
	Spacing int `yaml:"spacing"`

	// Threshold is the normalized noise cutoff above which a nexus
	// spawns. Frequency scales tile coordinates into noise space.
	Threshold float64 `yaml:"threshold"`
	Frequency float64 `yaml:"frequency"`
}

// DefaultOptions returns a sparse layout covering the starting area.
func DefaultOptions() Options {
	return Options{
		Seed:         1,
		RadiusChunks: 2,
		ChunkSize:    64,
		Spacing:      4,
		Threshold:    0.93,
		Frequency:    0.05,
	}
}

// Seed walks the lattice and registers a nexus wherever the noise clears
// the threshold, with the overshoot picking the level (1 to 5). Returns the
// number of registered nexuses.
func Seed(ctx context.Context, reg Registrar, opts Options) (int, error) {
	if opts.Spacing < 1 {
		opts.Spacing = 1
	}
	if opts.Frequency <= 0 {
		opts.Frequency = 0.05
	}
	if opts.Threshold <= 0 || opts.Threshold >= 1 {
		opts.Threshold = 0.93
	}

	noise := opensimplex.NewNormalized(opts.Seed)
	span := opts.RadiusChunks * opts.ChunkSize
	count := 0
	for q := -span; q <= span; q += opts.Spacing {
		for r := -span; r <= span; r += opts.Spacing {
			if err := ctx.Err(); err != nil {
				return count, err
			}
			v := noise.Eval2(float64(q)*opts.Frequency, float64(r)*opts.Frequency)
			if v < opts.Threshold {
				continue
			}
			level := 1 + int((v-opts.Threshold)/(1-opts.Threshold)*4)
			if level > 5 {
				level = 5
			}
			if _, err := reg.RegisterNexus(ctx, q, r, level); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}
