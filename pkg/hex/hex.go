// Package hex implements axial coordinate math for a pointy-top hexagonal
// grid: distances, neighbor enumeration, pixel projection and the chunk
// bucketing used by the spatial indices.
package hex

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidSize is returned when a pixel projection is requested with a
// size that is not a positive finite number.
var ErrInvalidSize = errors.New("hex: size must be a positive finite number")

const sqrt3 = 1.7320508075688772

// Coord is an axial hex coordinate. The third cube axis is implicit:
// s = -q - r.
type Coord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// neighborVectors lists the six adjacent offsets in clockwise order
// starting east.
var neighborVectors = [6]Coord{
	{1, 0}, {1, -1}, {0, -1}, {-1, 0}, {-1, 1}, {0, 1},
}

// Add returns c translated by o.
func (c Coord) Add(o Coord) Coord {
	return Coord{Q: c.Q + o.Q, R: c.R + o.R}
}

// Neighbors fills out with the six adjacent coordinates.
func (c Coord) Neighbors(out *[6]Coord) {
	for i, v := range neighborVectors {
		out[i] = c.Add(v)
	}
}

// Key encodes the coordinate as "q:r" for use as a set member or map key.
func (c Coord) Key() string {
	return strconv.Itoa(c.Q) + ":" + strconv.Itoa(c.R)
}

func (c Coord) String() string { return c.Key() }

// ParseKey decodes a "q:r" key produced by Key.
func ParseKey(s string) (Coord, error) {
	q, r, err := splitKey(s)
	if err != nil {
		return Coord{}, err
	}
	return Coord{Q: q, R: r}, nil
}

// Distance returns the hex distance between a and b.
func Distance(a, b Coord) int {
	dq := a.Q - b.Q
	dr := a.R - b.R
	return (abs(dq) + abs(dr) + abs(dq+dr)) / 2
}

// ToPixel projects c to pixel space for a pointy-top layout with the given
// hex size.
func ToPixel(c Coord, size float64) (x, y float64, err error) {
	if err := checkSize(size); err != nil {
		return 0, 0, err
	}
	x = size * sqrt3 * (float64(c.Q) + float64(c.R)/2)
	y = size * 1.5 * float64(c.R)
	return x, y, nil
}

// FromPixel inverts ToPixel, rounding to the nearest hex via cube rounding.
func FromPixel(x, y, size float64) (Coord, error) {
	if err := checkSize(size); err != nil {
		return Coord{}, err
	}
	qf := (sqrt3/3*x - y/3) / size
	rf := (2.0 / 3.0 * y) / size
	return cubeRound(qf, rf), nil
}

func checkSize(size float64) error {
	if size <= 0 || math.IsInf(size, 0) || math.IsNaN(size) {
		return ErrInvalidSize
	}
	return nil
}

// cubeRound rounds fractional axial coordinates to the containing hex,
// re-deriving the axis with the largest rounding error from the other two.
func cubeRound(qf, rf float64) Coord {
	sf := -qf - rf

	q := math.Round(qf)
	r := math.Round(rf)
	s := math.Round(sf)

	dq := math.Abs(q - qf)
	dr := math.Abs(r - rf)
	ds := math.Abs(s - sf)

	switch {
	case dq > dr && dq > ds:
		q = -r - s
	case dr > ds:
		r = -q - s
	}
	return Coord{Q: int(q), R: int(r)}
}

// Chunk identifies the rectangular bucket a coordinate falls into.
type Chunk struct {
	Q int `json:"cq"`
	R int `json:"cr"`
}

// ChunkOf buckets c using floor division on each axis.
func ChunkOf(c Coord, chunkSize int) Chunk {
	return Chunk{Q: floorDiv(c.Q, chunkSize), R: floorDiv(c.R, chunkSize)}
}

// Center returns the coordinate at the middle of the chunk.
func (ch Chunk) Center(chunkSize int) Coord {
	return Coord{
		Q: ch.Q*chunkSize + chunkSize/2,
		R: ch.R*chunkSize + chunkSize/2,
	}
}

// Key encodes the chunk as "cq:cr".
func (ch Chunk) Key() string {
	return strconv.Itoa(ch.Q) + ":" + strconv.Itoa(ch.R)
}

func (ch Chunk) String() string { return ch.Key() }

// ParseChunkKey decodes a "cq:cr" key produced by Key.
func ParseChunkKey(s string) (Chunk, error) {
	q, r, err := splitKey(s)
	if err != nil {
		return Chunk{}, err
	}
	return Chunk{Q: q, R: r}, nil
}

// floorDiv divides rounding toward negative infinity, so negative
// coordinates bucket consistently.
func floorDiv(v, size int) int {
	d := v / size
	if v%size != 0 && (v < 0) != (size < 0) {
		d--
	}
	return d
}

func splitKey(s string) (int, int, error) {
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return 0, 0, fmt.Errorf("hex: malformed key %q", s)
	}
	q, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, 0, fmt.Errorf("hex: malformed key %q", s)
	}
	r, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return 0, 0, fmt.Errorf("hex: malformed key %q", s)
	}
	return q, r, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
