// Package gateway is the WebSocket face of the world engine. Sessions
// speak JSON envelopes, actions are rate limited per connection, and
// committed tile changes fan out to chunk rooms so clients only hear about
// the part of the map they are watching.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"hexlands/pkg/hex"
	"hexlands/pkg/logger"
	"hexlands/pkg/world"
)

// Options tune the transport surface.
type Options struct {
	MaxViewRadius  int `yaml:"max_view_radius"`
	MaxRadarRadius int `yaml:"max_radar_radius"`
}

// DefaultOptions returns the stock view and radar caps.
func DefaultOptions() Options {
	return Options{MaxViewRadius: 24, MaxRadarRadius: 256}
}

// Hub owns every live session and the chunk rooms updates fan out through.
type Hub struct {
	engine *world.Engine
	opts   Options
	log    *zap.Logger

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[hex.Chunk]map[*Client]struct{}
	subs    map[*Client]map[hex.Chunk]struct{}

	dropped atomic.Int64
}

// New wires a hub over the engine.
func New(engine *world.Engine, opts Options) *Hub {
	if opts.MaxViewRadius <= 0 {
		opts.MaxViewRadius = 24
	}
	if opts.MaxRadarRadius <= 0 {
		opts.MaxRadarRadius = 256
	}
	return &Hub{
		engine: engine,
		opts:   opts,
		log:    logger.Get().Named("gateway"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*Client]struct{}),
		rooms:   make(map[hex.Chunk]map[*Client]struct{}),
		subs:    make(map[*Client]map[hex.Chunk]struct{}),
	}
}

// HandleWS upgrades the connection and runs the session until it drops.
// The player comes from the uid query parameter; authentication sits in
// front of the gateway.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	player, err := h.engine.GetPlayer(r.Context(), r.URL.Query().Get("uid"))
	if err != nil {
		if errors.Is(err, world.ErrInvalidUserID) {
			http.Error(w, "missing or invalid uid", http.StatusBadRequest)
			return
		}
		h.log.Error("load player for session", zap.Error(err))
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		sessionID: uuid.NewString(),
		userID:    player.UserID,
		limits:    newActionLimiters(),
	}
	h.register(client)
	h.log.Info("session opened",
		zap.String("session_id", client.sessionID),
		zap.String("user_id", client.userID))

	go client.writePump()
	client.reply(TypeWelcome, welcomePayload{SessionID: client.sessionID, Player: player})
	client.readPump(r.Context())
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for ch := range h.subs[c] {
		if room := h.rooms[ch]; room != nil {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, ch)
			}
		}
	}
	delete(h.subs, c)
	close(c.send)
}

// subscribeView repoints the client's room subscriptions at the chunks
// covering a view box.
func (h *Hub) subscribeView(c *Client, center hex.Coord, radius int) {
	chunkSize := h.engine.Config().ChunkSize
	lo := hex.ChunkOf(hex.Coord{Q: center.Q - radius, R: center.R - radius}, chunkSize)
	hi := hex.ChunkOf(hex.Coord{Q: center.Q + radius, R: center.R + radius}, chunkSize)

	next := make(map[hex.Chunk]struct{})
	for cq := lo.Q; cq <= hi.Q; cq++ {
		for cr := lo.R; cr <= hi.R; cr++ {
			next[hex.Chunk{Q: cq, R: cr}] = struct{}{}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	for ch := range h.subs[c] {
		if _, keep := next[ch]; keep {
			continue
		}
		if room := h.rooms[ch]; room != nil {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, ch)
			}
		}
	}
	for ch := range next {
		room := h.rooms[ch]
		if room == nil {
			room = make(map[*Client]struct{})
			h.rooms[ch] = room
		}
		room[c] = struct{}{}
	}
	h.subs[c] = next
}

// broadcastTile pushes a committed change to everyone watching the chunk.
func (h *Hub) broadcastTile(ch hex.Chunk, action, actorID string, tile *world.Tile) {
	frame, err := encodeFrame(TypeTileUpdate, tileUpdatePayload{
		Action:  action,
		ActorID: actorID,
		Tile:    tile,
	})
	if err != nil {
		h.log.Error("encode tile update", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[ch] {
		c.enqueue(frame)
	}
}

func (h *Hub) dispatch(ctx context.Context, c *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.replyError("bad-frame", "frames are JSON envelopes with type and data")
		return
	}

	switch env.Type {
	case ActionPing:
		c.reply(TypePong, struct{}{})

	case ActionClaim:
		if !c.allow(ActionClaim) {
			c.reply(TypeRateLimited, rateLimitedPayload{Action: ActionClaim})
			return
		}
		var req coordRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			c.replyError("bad-frame", "claim needs q and r")
			return
		}
		res, err := h.engine.Claim(ctx, c.userID, req.Q, req.R)
		if err != nil {
			h.replyEngineError(c, err)
			return
		}
		c.reply(TypeClaimResult, res)
		if res.OK() {
			h.broadcastTile(res.Chunk, ActionClaim, c.userID, res.Tile)
		}

	case ActionRepair:
		if !c.allow(ActionRepair) {
			c.reply(TypeRateLimited, rateLimitedPayload{Action: ActionRepair})
			return
		}
		var req coordRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			c.replyError("bad-frame", "repair needs q and r")
			return
		}
		res, err := h.engine.Repair(ctx, c.userID, req.Q, req.R)
		if err != nil {
			h.replyEngineError(c, err)
			return
		}
		c.reply(TypeRepairResult, res)
		if res.OK() {
			h.broadcastTile(res.Chunk, ActionRepair, c.userID, res.Tile)
		}

	case ActionView:
		var req viewRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			c.replyError("bad-frame", "view needs q, r and radius")
			return
		}
		radius := req.Radius
		if radius < 0 {
			radius = 0
		}
		if radius > h.opts.MaxViewRadius {
			radius = h.opts.MaxViewRadius
		}
		tiles, err := h.engine.TilesInRange(ctx, req.Q, req.R, radius)
		if err != nil {
			h.replyEngineError(c, err)
			return
		}
		h.subscribeView(c, hex.Coord{Q: req.Q, R: req.R}, radius)
		c.reply(TypeTiles, tilesPayload{
			Center: hex.Coord{Q: req.Q, R: req.R},
			Radius: radius,
			Tiles:  tiles,
		})

	case ActionRadar:
		if !c.allow(ActionRadar) {
			c.reply(TypeRateLimited, rateLimitedPayload{Action: ActionRadar})
			return
		}
		var req viewRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			c.replyError("bad-frame", "radar needs q, r and radius")
			return
		}
		radius := req.Radius
		if radius > h.opts.MaxRadarRadius {
			radius = h.opts.MaxRadarRadius
		}
		data, err := h.engine.RadarSummary(ctx, c.userID, req.Q, req.R, radius)
		if err != nil {
			h.replyEngineError(c, err)
			return
		}
		c.reply(TypeRadar, data)

	case ActionLeaderboard:
		var req leaderboardRequest
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &req); err != nil {
				c.replyError("bad-frame", "leaderboard takes an optional limit")
				return
			}
		}
		limit := req.Limit
		if limit <= 0 {
			limit = h.engine.Config().MaxLeaderboardEntries
		}
		entries, err := h.engine.Leaderboard(ctx, limit)
		if err != nil {
			h.replyEngineError(c, err)
			return
		}
		c.reply(TypeLeaderboard, leaderboardPayload{Entries: entries})

	case ActionAlliance:
		var req allianceRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			c.replyError("bad-frame", "set_alliance needs a tag")
			return
		}
		player, err := h.engine.SetAllianceTag(ctx, c.userID, req.Tag)
		if err != nil {
			h.replyEngineError(c, err)
			return
		}
		c.reply(TypeProfile, player)

	case ActionProfile:
		player, err := h.engine.GetPlayer(ctx, c.userID)
		if err != nil {
			h.replyEngineError(c, err)
			return
		}
		c.reply(TypeProfile, player)

	default:
		c.replyError("unknown-type", "unsupported frame type "+env.Type)
	}
}

func (h *Hub) replyEngineError(c *Client, err error) {
	switch {
	case errors.Is(err, world.ErrInvalidCoordinates),
		errors.Is(err, world.ErrInvalidRadius),
		errors.Is(err, world.ErrInvalidLevel),
		errors.Is(err, world.ErrInvalidAllianceTag),
		errors.Is(err, world.ErrInvalidUserID),
		errors.Is(err, hex.ErrInvalidSize):
		c.replyError("invalid-argument", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.replyError("cancelled", "request cancelled")
	default:
		h.log.Error("engine call failed",
			zap.String("user_id", c.userID), zap.Error(err))
		c.replyError("internal", "internal error")
	}
}

// Stats is the live gateway picture for the status endpoint.
type Stats struct {
	Clients       int   `json:"clients"`
	Rooms         int   `json:"rooms"`
	DroppedFrames int64 `json:"dropped_frames"`
}

// Stats reports the current session and room counts.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Stats{
		Clients:       len(h.clients),
		Rooms:         len(h.rooms),
		DroppedFrames: h.dropped.Load(),
	}
}

// Shutdown drops every live session.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		c.conn.Close()
	}
}
