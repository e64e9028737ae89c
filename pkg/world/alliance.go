package world

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"hexlands/pkg/hex"
)

var allianceTagPattern = regexp.MustCompile(`^[A-Z0-9]{3,4}$`)

// SetAllianceTag sets or clears the player's alliance. An empty tag leaves
// the alliance. The tag is trimmed and uppercased before validation, the
// color derives deterministically from it, and both are fanned out to the
// alliance snapshot fields of every tile the player owns.
func (e *Engine) SetAllianceTag(ctx context.Context, userID, tag string) (*PlayerProfile, error) {
	uid, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}
	normalized := strings.ToUpper(strings.TrimSpace(tag))
	if normalized != "" && !allianceTagPattern.MatchString(normalized) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAllianceTag, tag)
	}
	color := ""
	if normalized != "" {
		color = AllianceColor(normalized)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := e.playerLocks.lock(uid)
	defer unlock()

	player, err := e.loadOrCreatePlayer(ctx, uid)
	if err != nil {
		return nil, err
	}
	player.AllianceTag = normalized
	player.AllianceColor = color
	player.LastUpdate = e.now()
	if err := e.savePlayer(ctx, player); err != nil {
		return nil, err
	}

	// Refresh the denormalized snapshot on owned tiles. Only the two
	// alliance fields are touched, so no tile locks are needed and
	// concurrent tile writes stay intact.
	owned, err := e.store.SMembers(ctx, ownerTilesKey(uid))
	if err != nil {
		return nil, err
	}
	patch := map[string]string{
		fieldAllianceTag:   normalized,
		fieldAllianceColor: color,
	}
	for _, member := range owned {
		c, err := hex.ParseKey(member)
		if err != nil {
			continue
		}
		if _, err := e.store.HSet(ctx, tileKey(c), patch); err != nil {
			return nil, err
		}
	}

	e.log.Info("alliance updated",
		zap.String("user_id", uid),
		zap.String("tag", normalized),
		zap.Int("tiles", len(owned)))
	return player, nil
}

// AllianceColor derives the display color for a tag: a polynomial hash of
// the codepoints picks the hue, saturation and lightness are fixed.
func AllianceColor(tag string) string {
	h := 0
	for _, cp := range tag {
		h = h*31 + int(cp)
	}
	hue := float64(h % 360)
	r, g, b := hslToRGB(hue, 0.68, 0.56)
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return uint8(math.Round((r + m) * 255)),
		uint8(math.Round((g + m) * 255)),
		uint8(math.Round((b + m) * 255))
}
