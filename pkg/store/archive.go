// Package store holds the durable side of the world: relational snapshot
// sinks for Postgres and SQLite plus the compressed, hash-chained world
// archives both of them write.
package store

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"

	"hexlands/pkg/world"
)

// Archive is one row of the world_archives chain. Blob holds the LZ4
// compressed JSON tile set, StateHash its BLAKE3 digest, and PrevHash the
// digest of the previous archive (empty for the first).
type Archive struct {
	ID        string
	CreatedMs int64
	TileCount int
	StateHash string
	PrevHash  string
	Blob      []byte
}

var lz4Buffers = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

func compressLZ4(data []byte) ([]byte, error) {
	buf := lz4Buffers.Get().(*bytes.Buffer)
	defer lz4Buffers.Put(buf)
	buf.Reset()

	zw := lz4.NewWriter(buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decompressLZ4(data []byte) ([]byte, error) {
	buf := lz4Buffers.Get().(*bytes.Buffer)
	defer lz4Buffers.Put(buf)
	buf.Reset()

	if _, err := buf.ReadFrom(lz4.NewReader(bytes.NewReader(data))); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func hashBLAKE3(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// encodeArchive packs the tile set into a compressed blob and returns it
// with its digest.
func encodeArchive(tiles []world.Tile) (blob []byte, hash string, err error) {
	raw, err := json.Marshal(tiles)
	if err != nil {
		return nil, "", fmt.Errorf("store: encode archive: %w", err)
	}
	blob, err = compressLZ4(raw)
	if err != nil {
		return nil, "", fmt.Errorf("store: compress archive: %w", err)
	}
	return blob, hashBLAKE3(blob), nil
}

// DecodeArchiveTiles unpacks an archive blob back into the tile set.
func DecodeArchiveTiles(blob []byte) ([]world.Tile, error) {
	raw, err := decompressLZ4(blob)
	if err != nil {
		return nil, fmt.Errorf("store: decompress archive: %w", err)
	}
	var tiles []world.Tile
	if err := json.Unmarshal(raw, &tiles); err != nil {
		return nil, fmt.Errorf("store: decode archive: %w", err)
	}
	return tiles, nil
}

// nullable maps the engine's empty-string convention to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
