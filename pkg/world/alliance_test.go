package world

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAllianceTagNormalizes(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	p, err := env.engine.SetAllianceTag(ctx, "alice", "  fox ")
	require.NoError(t, err)
	assert.Equal(t, "FOX", p.AllianceTag)
	assert.Equal(t, AllianceColor("FOX"), p.AllianceColor)
}

func TestSetAllianceTagRejectsBadTags(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	for _, tag := range []string{"AB", "TOOBIG", "F-X1", "ÖMG", "a b"} {
		_, err := env.engine.SetAllianceTag(ctx, "alice", tag)
		assert.ErrorIsf(t, err, ErrInvalidAllianceTag, "tag %q should be rejected", tag)
	}
}

func TestSetAllianceTagPropagatesToTiles(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.mustClaim(t, "alice", 0, 0)
	env.mustClaim(t, "alice", 1, 0)

	_, err := env.engine.SetAllianceTag(ctx, "alice", "FOX")
	require.NoError(t, err)

	for _, coord := range [][2]int{{0, 0}, {1, 0}} {
		tile, err := env.engine.GetTile(ctx, coord[0], coord[1])
		require.NoError(t, err)
		require.NotNil(t, tile)
		assert.Equal(t, "FOX", tile.AllianceTag)
		assert.Equal(t, AllianceColor("FOX"), tile.AllianceColor)
	}

	// Tiles claimed after joining carry the snapshot immediately.
	res := env.mustClaim(t, "alice", 2, 0)
	assert.Equal(t, "FOX", res.Tile.AllianceTag)

	// Leaving clears the snapshot everywhere.
	p, err := env.engine.SetAllianceTag(ctx, "alice", "")
	require.NoError(t, err)
	assert.Empty(t, p.AllianceTag)
	assert.Empty(t, p.AllianceColor)
	for _, coord := range [][2]int{{0, 0}, {1, 0}, {2, 0}} {
		tile, err := env.engine.GetTile(ctx, coord[0], coord[1])
		require.NoError(t, err)
		require.NotNil(t, tile)
		assert.Empty(t, tile.AllianceTag)
		assert.Empty(t, tile.AllianceColor)
	}
}

func TestSetAllianceTagLeavesOtherTileFieldsAlone(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.mustClaim(t, "alice", 0, 0)
	env.setTileFields(t, 0, 0, map[string]string{fieldIntegrity: "37.5", fieldLevel: "4"})

	_, err := env.engine.SetAllianceTag(ctx, "alice", "FOX")
	require.NoError(t, err)

	tile, err := env.engine.GetTile(ctx, 0, 0)
	require.NoError(t, err)
	require.NotNil(t, tile)
	assert.Equal(t, 37.5, tile.Integrity)
	assert.Equal(t, 4, tile.Level)
	assert.Equal(t, "alice", tile.OwnerID)
}

func TestAllianceColor(t *testing.T) {
	pattern := regexp.MustCompile(`^#[0-9A-F]{6}$`)
	for _, tag := range []string{"FOX", "WOLF", "A1B2", "ZZZZ"} {
		color := AllianceColor(tag)
		assert.Regexpf(t, pattern, color, "color for %s", tag)
		assert.Equal(t, color, AllianceColor(tag), "color must be deterministic")
	}

	// Hash 69807 for FOX lands on hue 327.
	assert.Equal(t, "#DB4396", AllianceColor("FOX"))
	assert.NotEqual(t, AllianceColor("FOX"), AllianceColor("WOLF"))
}
