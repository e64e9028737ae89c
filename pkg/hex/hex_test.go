package hex

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	cases := []struct {
		a, b Coord
		want int
	}{
		{Coord{0, 0}, Coord{0, 0}, 0},
		{Coord{0, 0}, Coord{1, 0}, 1},
		{Coord{0, 0}, Coord{1, -1}, 1},
		{Coord{0, 0}, Coord{8, 0}, 8},
		{Coord{0, 0}, Coord{3, -5}, 5},
		{Coord{-3, 2}, Coord{3, -2}, 6},
		{Coord{2, -1}, Coord{2, -1}, 0},
		{Coord{-10, 4}, Coord{7, -4}, 17},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Distance(c.a, c.b), "distance %v -> %v", c.a, c.b)
		assert.Equal(t, c.want, Distance(c.b, c.a), "distance must be symmetric")
	}
}

func TestNeighbors(t *testing.T) {
	var got [6]Coord
	Coord{0, 0}.Neighbors(&got)

	want := [6]Coord{{1, 0}, {1, -1}, {0, -1}, {-1, 0}, {-1, 1}, {0, 1}}
	assert.Equal(t, want, got)

	Coord{-4, 9}.Neighbors(&got)
	for _, n := range got {
		assert.Equal(t, 1, Distance(Coord{-4, 9}, n), "neighbor %v not adjacent", n)
	}
}

func TestToPixelValues(t *testing.T) {
	x, y, err := ToPixel(Coord{1, 0}, 10)
	require.NoError(t, err)
	assert.InDelta(t, 10*math.Sqrt(3), x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)

	x, y, err = ToPixel(Coord{0, 1}, 10)
	require.NoError(t, err)
	assert.InDelta(t, 5*math.Sqrt(3), x, 1e-9)
	assert.InDelta(t, 15.0, y, 1e-9)
}

func TestPixelRoundTrip(t *testing.T) {
	sizes := []float64{0.25, 1, 12, 144.5}
	for _, size := range sizes {
		for q := -60; q <= 60; q += 3 {
			for r := -60; r <= 60; r += 3 {
				c := Coord{Q: q, R: r}
				x, y, err := ToPixel(c, size)
				require.NoError(t, err)
				back, err := FromPixel(x, y, size)
				require.NoError(t, err)
				require.Equal(t, c, back, "round trip failed at size %v", size)
			}
		}
	}
}

func TestFromPixelRounding(t *testing.T) {
	// A point nudged off a hex center must still resolve to that hex.
	x, y, err := ToPixel(Coord{3, -2}, 12)
	require.NoError(t, err)
	got, err := FromPixel(x+2.0, y-1.5, 12)
	require.NoError(t, err)
	assert.Equal(t, Coord{3, -2}, got)
}

func TestInvalidSize(t *testing.T) {
	bad := []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)}
	for _, size := range bad {
		_, _, err := ToPixel(Coord{1, 1}, size)
		assert.ErrorIs(t, err, ErrInvalidSize, "ToPixel size %v", size)
		_, err = FromPixel(1, 1, size)
		assert.ErrorIs(t, err, ErrInvalidSize, "FromPixel size %v", size)
	}
}

func TestChunkOf(t *testing.T) {
	cases := []struct {
		c    Coord
		want Chunk
	}{
		{Coord{0, 0}, Chunk{0, 0}},
		{Coord{63, 63}, Chunk{0, 0}},
		{Coord{64, 0}, Chunk{1, 0}},
		{Coord{-1, -1}, Chunk{-1, -1}},
		{Coord{-64, -64}, Chunk{-1, -1}},
		{Coord{-65, 0}, Chunk{-2, 0}},
		{Coord{128, -129}, Chunk{2, -3}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ChunkOf(c.c, 64), "chunk of %v", c.c)
	}
}

func TestChunkCenter(t *testing.T) {
	assert.Equal(t, Coord{32, 32}, Chunk{0, 0}.Center(64))
	assert.Equal(t, Coord{-32, -32}, Chunk{-1, -1}.Center(64))
	assert.Equal(t, Coord{96, -160}, Chunk{1, -3}.Center(64))
}

func TestKeyRoundTrip(t *testing.T) {
	for _, c := range []Coord{{0, 0}, {12, -7}, {-300, 299}} {
		got, err := ParseKey(c.Key())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	ch, err := ParseChunkKey(Chunk{-2, 5}.Key())
	require.NoError(t, err)
	assert.Equal(t, Chunk{-2, 5}, ch)

	for _, s := range []string{"", "12", "a:b", "1:2:3", "1.5:2"} {
		if _, err := ParseKey(s); err == nil {
			t.Errorf("ParseKey(%q) accepted malformed input", s)
		}
	}
}
