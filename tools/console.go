package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
)

var ServerURL = "ws://localhost:8080/ws"

// --- Wire Models ---

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type coord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

type tile struct {
	Coord       coord   `json:"coord"`
	OwnerID     string  `json:"owner_id"`
	AllianceTag string  `json:"owner_alliance_tag"`
	Energy      float64 `json:"energy"`
	Integrity   float64 `json:"integrity"`
	Level       int     `json:"level"`
	Type        string  `json:"tile_type"`
}

type actionResult struct {
	Status          string  `json:"status"`
	EnergyAfter     float64 `json:"energy_after"`
	EnergyCost      float64 `json:"energy_cost"`
	RequiredEnergy  float64 `json:"required_energy"`
	PlayerEnergy    float64 `json:"player_energy"`
	NearestDistance *int    `json:"nearest_distance"`
	MaxDistance     int     `json:"max_distance"`
	Tile            *tile   `json:"tile"`
}

type profile struct {
	UserID        string  `json:"user_id"`
	DisplayName   string  `json:"display_name"`
	AllianceTag   string  `json:"alliance_tag"`
	AllianceColor string  `json:"alliance_color"`
	Energy        float64 `json:"energy"`
}

type welcome struct {
	SessionID string  `json:"session_id"`
	Player    profile `json:"player"`
}

type tilesReply struct {
	Center coord  `json:"center"`
	Radius int    `json:"radius"`
	Tiles  []tile `json:"tiles"`
}

type radarReply struct {
	PlayerBases []coord `json:"player_bases"`
	NexusCores  []struct {
		Q     int `json:"q"`
		R     int `json:"r"`
		Level int `json:"level"`
	} `json:"nexus_cores"`
	Hotspots []struct {
		Q        int   `json:"q"`
		R        int   `json:"r"`
		Activity int64 `json:"activity"`
	} `json:"hotspots"`
}

type boardReply struct {
	Entries []struct {
		UserID      string `json:"user_id"`
		DisplayName string `json:"display_name"`
		AllianceTag string `json:"alliance_tag"`
		Score       int64  `json:"score"`
	} `json:"entries"`
}

type errorReply struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func main() {
	if url := os.Getenv("HEXLANDS_SERVER"); url != "" {
		ServerURL = url
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Println("HexLands Field Console v1.0")
	fmt.Printf("Target Server: %s\n", ServerURL)

	fmt.Print("Commander ID: ")
	uid, _ := reader.ReadString('\n')
	uid = strings.TrimSpace(uid)
	if uid == "" {
		fmt.Println("No id given. Disconnecting.")
		return
	}

	conn, _, err := websocket.DefaultDialer.Dial(ServerURL+"?uid="+uid, nil)
	if err != nil {
		fmt.Printf("Connection failed: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	done := make(chan struct{})
	go printFrames(conn, done)

	fmt.Println("\n--- UPLINK ESTABLISHED ---")
	fmt.Println("Commands: claim, repair, view, radar, board, tag, profile, help, quit")

	for {
		fmt.Printf("[%s]> ", uid)
		text, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		parts := strings.Fields(strings.TrimSpace(text))
		if len(parts) == 0 {
			select {
			case <-done:
				fmt.Println("Server closed the uplink.")
				return
			default:
			}
			continue
		}

		switch parts[0] {
		case "claim":
			if len(parts) < 3 {
				fmt.Println("Usage: claim <q> <r>")
				continue
			}
			q, r := atoi(parts[1]), atoi(parts[2])
			send(conn, "claim", map[string]int{"q": q, "r": r})
		case "repair":
			if len(parts) < 3 {
				fmt.Println("Usage: repair <q> <r>")
				continue
			}
			q, r := atoi(parts[1]), atoi(parts[2])
			send(conn, "repair", map[string]int{"q": q, "r": r})
		case "view":
			if len(parts) < 4 {
				fmt.Println("Usage: view <q> <r> <radius>")
				continue
			}
			send(conn, "view", map[string]int{
				"q": atoi(parts[1]), "r": atoi(parts[2]), "radius": atoi(parts[3]),
			})
		case "radar":
			if len(parts) < 4 {
				fmt.Println("Usage: radar <q> <r> <radius>")
				continue
			}
			send(conn, "radar", map[string]int{
				"q": atoi(parts[1]), "r": atoi(parts[2]), "radius": atoi(parts[3]),
			})
		case "board":
			limit := 10
			if len(parts) > 1 {
				limit = atoi(parts[1])
			}
			send(conn, "leaderboard", map[string]int{"limit": limit})
		case "tag":
			if len(parts) < 2 {
				fmt.Println("Usage: tag <TAG>   (3-4 letters, empty string clears)")
				continue
			}
			send(conn, "set_alliance", map[string]string{"tag": parts[1]})
		case "profile":
			send(conn, "profile", nil)
		case "help":
			fmt.Println("Available Commands:")
			fmt.Println("  claim <q> <r>            - Claim or capture a tile")
			fmt.Println("  repair <q> <r>           - Restore integrity on your tile")
			fmt.Println("  view <q> <r> <radius>    - List tiles and watch that area")
			fmt.Println("  radar <q> <r> <radius>   - Long range sweep")
			fmt.Println("  board [n]                - Territory leaderboard")
			fmt.Println("  tag <TAG>                - Set your alliance tag")
			fmt.Println("  profile                  - Show your profile")
			fmt.Println("  quit                     - Disconnect")
		case "quit", "exit":
			fmt.Println("Disconnecting...")
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		default:
			fmt.Println("Unknown command. Type 'help' for options.")
		}
	}
}

func send(conn *websocket.Conn, frameType string, payload interface{}) {
	var data json.RawMessage
	if payload != nil {
		data, _ = json.Marshal(payload)
	}
	if err := conn.WriteJSON(envelope{Type: frameType, Data: data}); err != nil {
		fmt.Printf("Send failed: %v\n", err)
	}
}

// printFrames renders every server frame until the connection drops.
func printFrames(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		switch env.Type {
		case "welcome":
			var w welcome
			json.Unmarshal(env.Data, &w)
			fmt.Printf("\n<< Welcome Commander %s | energy %.1f | session %s\n",
				w.Player.DisplayName, w.Player.Energy, w.SessionID)
		case "claim_result", "repair_result":
			var res actionResult
			json.Unmarshal(env.Data, &res)
			if res.Status == "ok" && res.Tile != nil {
				fmt.Printf("\n<< %s at (%d,%d): cost %.1f, energy left %.1f\n",
					env.Type, res.Tile.Coord.Q, res.Tile.Coord.R, res.EnergyCost, res.EnergyAfter)
			} else if res.Status == "out-of-range" && res.NearestDistance != nil {
				fmt.Printf("\n<< %s: nearest owned tile is %d away (max %d)\n",
					env.Type, *res.NearestDistance, res.MaxDistance)
			} else if res.Status == "insufficient-energy" {
				fmt.Printf("\n<< %s: need %.1f energy, you have %.1f\n",
					env.Type, res.RequiredEnergy, res.PlayerEnergy)
			} else {
				fmt.Printf("\n<< %s: %s\n", env.Type, res.Status)
			}
		case "tiles":
			var tr tilesReply
			json.Unmarshal(env.Data, &tr)
			fmt.Printf("\n<< %d tiles within %d of (%d,%d)\n",
				len(tr.Tiles), tr.Radius, tr.Center.Q, tr.Center.R)
			for _, tl := range tr.Tiles {
				owner := tl.OwnerID
				if owner == "" {
					owner = "-"
				}
				fmt.Printf("   (%d,%d) %s lvl %d energy %.0f integrity %.0f owner %s\n",
					tl.Coord.Q, tl.Coord.R, tl.Type, tl.Level, tl.Energy, tl.Integrity, owner)
			}
		case "radar":
			var rd radarReply
			json.Unmarshal(env.Data, &rd)
			fmt.Printf("\n<< radar: %d bases, %d nexus cores, %d hotspots\n",
				len(rd.PlayerBases), len(rd.NexusCores), len(rd.Hotspots))
			for _, n := range rd.NexusCores {
				fmt.Printf("   nexus (%d,%d) lvl %d\n", n.Q, n.R, n.Level)
			}
			for _, h := range rd.Hotspots {
				fmt.Printf("   hotspot (%d,%d) activity %d\n", h.Q, h.R, h.Activity)
			}
		case "leaderboard":
			var b boardReply
			json.Unmarshal(env.Data, &b)
			fmt.Println("\n<< leaderboard")
			for i, e := range b.Entries {
				tag := e.AllianceTag
				if tag != "" {
					tag = " [" + tag + "]"
				}
				fmt.Printf("   %2d. %s%s - %d tiles\n", i+1, e.DisplayName, tag, e.Score)
			}
		case "profile":
			var p profile
			json.Unmarshal(env.Data, &p)
			fmt.Printf("\n<< profile %s: energy %.1f tag %q color %s\n",
				p.UserID, p.Energy, p.AllianceTag, p.AllianceColor)
		case "tile_update":
			var up struct {
				Action  string `json:"action"`
				ActorID string `json:"actor_id"`
				Tile    *tile  `json:"tile"`
			}
			json.Unmarshal(env.Data, &up)
			if up.Tile != nil {
				fmt.Printf("\n<< %s by %s at (%d,%d)\n",
					up.Action, up.ActorID, up.Tile.Coord.Q, up.Tile.Coord.R)
			}
		case "rate_limited":
			fmt.Println("\n<< slow down, action rate limited")
		case "error":
			var e errorReply
			json.Unmarshal(env.Data, &e)
			fmt.Printf("\n<< error [%s]: %s\n", e.Code, e.Message)
		case "pong":
		default:
			fmt.Printf("\n<< %s %s\n", env.Type, env.Data)
		}
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
