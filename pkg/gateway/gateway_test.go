package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"hexlands/pkg/kv"
	"hexlands/pkg/logger"
	"hexlands/pkg/world"
)

type gatewayEnv struct {
	engine *world.Engine
	hub    *Hub
	srv    *httptest.Server
}

func newGatewayEnv(t *testing.T) *gatewayEnv {
	t.Helper()
	logger.Replace(zaptest.NewLogger(t))
	engine := world.NewEngine(world.DefaultConfig(), kv.NewMemory(), nil)
	hub := New(engine, DefaultOptions())
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
	})
	return &gatewayEnv{engine: engine, hub: hub, srv: srv}
}

type wsSession struct {
	conn    *websocket.Conn
	welcome welcomePayload
}

func (env *gatewayEnv) dial(t *testing.T, uid string) *wsSession {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/?uid=" + uid
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	s := &wsSession{conn: conn}
	env.decodeFrame(t, s.readType(t, TypeWelcome), &s.welcome)
	return s
}

func (env *gatewayEnv) decodeFrame(t *testing.T, frame Envelope, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(frame.Data, v))
}

func (s *wsSession) send(t *testing.T, action string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, s.conn.WriteJSON(Envelope{Type: action, Data: data}))
}

func (s *wsSession) read(t *testing.T) Envelope {
	t.Helper()
	s.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env Envelope
	require.NoError(t, s.conn.ReadJSON(&env))
	return env
}

func (s *wsSession) readType(t *testing.T, want string) Envelope {
	t.Helper()
	frame := s.read(t)
	require.Equalf(t, want, frame.Type, "unexpected frame %s: %s", frame.Type, frame.Data)
	return frame
}

func TestSessionWelcome(t *testing.T) {
	env := newGatewayEnv(t)
	s := env.dial(t, "alice")

	assert.NotEmpty(t, s.welcome.SessionID)
	require.NotNil(t, s.welcome.Player)
	assert.Equal(t, "alice", s.welcome.Player.UserID)
	assert.Equal(t, 100.0, s.welcome.Player.Energy)
}

func TestSessionRejectsMissingUID(t *testing.T) {
	env := newGatewayEnv(t)

	url := "ws" + strings.TrimPrefix(env.srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClaimOverSocket(t *testing.T) {
	env := newGatewayEnv(t)
	s := env.dial(t, "alice")

	s.send(t, ActionClaim, coordRequest{Q: 0, R: 0})

	var res world.ClaimResult
	env.decodeFrame(t, s.readType(t, TypeClaimResult), &res)
	assert.Equal(t, world.StatusOK, res.Status)
	assert.Equal(t, 90.0, res.EnergyAfter)
	require.NotNil(t, res.Tile)
	assert.Equal(t, "alice", res.Tile.OwnerID)
}

func TestClaimRateLimit(t *testing.T) {
	env := newGatewayEnv(t)
	s := env.dial(t, "alice")

	s.send(t, ActionClaim, coordRequest{Q: 0, R: 0})
	s.send(t, ActionClaim, coordRequest{Q: 1, R: 0})

	s.readType(t, TypeClaimResult)
	var limited rateLimitedPayload
	env.decodeFrame(t, s.readType(t, TypeRateLimited), &limited)
	assert.Equal(t, ActionClaim, limited.Action)
}

func TestRadarRateLimit(t *testing.T) {
	env := newGatewayEnv(t)
	s := env.dial(t, "alice")

	s.send(t, ActionRadar, viewRequest{Q: 0, R: 0, Radius: 10})
	s.send(t, ActionRadar, viewRequest{Q: 0, R: 0, Radius: 10})

	s.readType(t, TypeRadar)
	s.readType(t, TypeRateLimited)
}

func TestViewReturnsTilesAndClampsRadius(t *testing.T) {
	env := newGatewayEnv(t)
	_, err := env.engine.Claim(context.Background(), "bob", 2, 2)
	require.NoError(t, err)

	s := env.dial(t, "alice")
	s.send(t, ActionView, viewRequest{Q: 0, R: 0, Radius: 100000})

	var tiles tilesPayload
	env.decodeFrame(t, s.readType(t, TypeTiles), &tiles)
	assert.Equal(t, DefaultOptions().MaxViewRadius, tiles.Radius, "oversized views clamp")
	require.Len(t, tiles.Tiles, 1)
	assert.Equal(t, "bob", tiles.Tiles[0].OwnerID)
}

func TestTileUpdateBroadcast(t *testing.T) {
	env := newGatewayEnv(t)
	alice := env.dial(t, "alice")
	bob := env.dial(t, "bob")

	// Bob watches the origin area; the view reply doubles as the
	// subscription acknowledgement.
	bob.send(t, ActionView, viewRequest{Q: 0, R: 0, Radius: 5})
	bob.readType(t, TypeTiles)

	alice.send(t, ActionClaim, coordRequest{Q: 1, R: 1})
	alice.readType(t, TypeClaimResult)

	var update tileUpdatePayload
	env.decodeFrame(t, bob.readType(t, TypeTileUpdate), &update)
	assert.Equal(t, ActionClaim, update.Action)
	assert.Equal(t, "alice", update.ActorID)
	require.NotNil(t, update.Tile)
	assert.Equal(t, "alice", update.Tile.OwnerID)
	assert.Equal(t, 1, update.Tile.Coord.Q)
	assert.Equal(t, 1, update.Tile.Coord.R)
}

func TestLeaderboardOverSocket(t *testing.T) {
	env := newGatewayEnv(t)
	ctx := context.Background()
	_, err := env.engine.Claim(ctx, "a", 0, 0)
	require.NoError(t, err)
	_, err = env.engine.Claim(ctx, "b", 5, 5)
	require.NoError(t, err)
	_, err = env.engine.Claim(ctx, "b", 5, 6)
	require.NoError(t, err)

	s := env.dial(t, "viewer")
	require.NoError(t, s.conn.WriteJSON(Envelope{Type: ActionLeaderboard}))

	var board leaderboardPayload
	env.decodeFrame(t, s.readType(t, TypeLeaderboard), &board)
	require.Len(t, board.Entries, 2)
	assert.Equal(t, "b", board.Entries[0].UserID)
	assert.Equal(t, int64(2), board.Entries[0].Score)
}

func TestAllianceOverSocket(t *testing.T) {
	env := newGatewayEnv(t)
	s := env.dial(t, "alice")

	s.send(t, ActionAlliance, allianceRequest{Tag: " fox "})

	var p world.PlayerProfile
	env.decodeFrame(t, s.readType(t, TypeProfile), &p)
	assert.Equal(t, "FOX", p.AllianceTag)
	assert.Equal(t, world.AllianceColor("FOX"), p.AllianceColor)
}

func TestAllianceRejectionOverSocket(t *testing.T) {
	env := newGatewayEnv(t)
	s := env.dial(t, "alice")

	s.send(t, ActionAlliance, allianceRequest{Tag: "NO"})

	var ep errorPayload
	env.decodeFrame(t, s.readType(t, TypeError), &ep)
	assert.Equal(t, "invalid-argument", ep.Code)
}

func TestUnknownFrameType(t *testing.T) {
	env := newGatewayEnv(t)
	s := env.dial(t, "alice")

	require.NoError(t, s.conn.WriteJSON(Envelope{Type: "warp"}))

	var ep errorPayload
	env.decodeFrame(t, s.readType(t, TypeError), &ep)
	assert.Equal(t, "unknown-type", ep.Code)
}

func TestMalformedPayload(t *testing.T) {
	env := newGatewayEnv(t)
	s := env.dial(t, "alice")

	require.NoError(t, s.conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"claim","data":"not an object"}`)))

	var ep errorPayload
	env.decodeFrame(t, s.readType(t, TypeError), &ep)
	assert.Equal(t, "bad-frame", ep.Code)
}

func TestStatsTrackSessions(t *testing.T) {
	env := newGatewayEnv(t)
	assert.Zero(t, env.hub.Stats().Clients)

	s := env.dial(t, "alice")
	assert.Equal(t, 1, env.hub.Stats().Clients)

	s.send(t, ActionView, viewRequest{Q: 0, R: 0, Radius: 1})
	s.readType(t, TypeTiles)
	assert.Positive(t, env.hub.Stats().Rooms, "a view subscribes the session to chunk rooms")

	s.conn.Close()
	require.Eventually(t, func() bool {
		return env.hub.Stats().Clients == 0
	}, 2*time.Second, 10*time.Millisecond, "closing the socket unregisters the session")
}
