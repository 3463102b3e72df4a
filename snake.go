// Two-player snake over websockets.
//
// Protocol outline:
// - Each websocket connection gets a fresh connection id
// - "findGame" places the client in the first room waiting for a second
//   player, or opens a new room and answers "waitingForPlayer"
// - When the second player arrives, both get "gameFound" with the room id,
//   the player ids in slot order and the initial food cell
// - Both send "playerReady"; every signal is echoed as "playerReadyUpdate",
//   and the second one starts the match with a single "gameStart"
// - Clients simulate movement locally. The server relays direction changes,
//   credits food pickups, moves the food, and ends the match on "gameOver"
//   or a disconnect
//
// Routes:
//   - $path          → browser client
//   - $path/ws       → websocket
//   - $path/qr       → PNG QR code linking to the browser client
//   - $path/stats    → JSON room counts

package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Seednode/snakebox/games"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const (
	sendBuffer   = 32
	maxFrameSize = 8192
	writeWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocket handler: one Client per connection, registered with the lobby.
func serveWS(cfg *Config, lobby *Lobby) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "CONNS: upgrade error from %s: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, sendBuffer),
			id:   uuid.NewString(),
		}

		select {
		case lobby.register <- client:
		case <-lobby.quit:
			_ = conn.Close()
			return
		}

		go client.writePump(cfg)
		client.readPump(cfg, lobby)
	}
}

func (c *Client) readPump(cfg *Config, lobby *Lobby) {
	defer func() {
		select {
		case lobby.unreg <- c:
		case <-lobby.quit:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.extendDeadline(cfg)
	c.conn.SetPongHandler(func(string) error {
		c.extendDeadline(cfg)
		return nil
	})

	for {
		var msg games.ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logf(cfg, "CONNS: read error from %s: %v", c.id, err)
			}
			return
		}
		c.extendDeadline(cfg)

		select {
		case lobby.events <- clientEvent{client: c, msg: msg}:
		case <-lobby.quit:
			return
		}
	}
}

func (c *Client) extendDeadline(cfg *Config) {
	if cfg.playerTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(cfg.playerTimeout))
	}
}

func (c *Client) writePump(cfg *Config) {
	defer c.conn.Close()

	var ping <-chan time.Time
	if cfg.playerTimeout > 0 {
		ticker := time.NewTicker(cfg.playerTimeout * 9 / 10)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ping:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// QR handler: generates a PNG QR code pointing at the browser client.
func qrHandler(cfg *Config, path string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + cfg.prefix + path

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

func serveStats(cfg *Config, lobby *Lobby, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		counts, ok := lobby.Stats()
		if !ok {
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		if err := json.NewEncoder(w).Encode(counts); err != nil {
			errs <- err
		}
	}
}

func serveSnakeClient(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data, err := assets.ReadFile("assets/snake/index.html")
		if err != nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		if _, err := w.Write(data); err != nil {
			errs <- err
		}
	}
}

// registerSnakeGame starts a lobby and mounts its routes under path.
func registerSnakeGame(cfg *Config, path string, mux *httprouter.Router, errs chan<- error) *Lobby {
	lobby := newLobby(cfg, nil)
	go lobby.run()

	mux.GET(cfg.prefix+path, serveSnakeClient(cfg, errs))

	mux.GET(cfg.prefix+path+"/ws", serveWS(cfg, lobby))

	mux.GET(cfg.prefix+path+"/qr", qrHandler(cfg, path))

	mux.GET(cfg.prefix+path+"/stats", serveStats(cfg, lobby, errs))

	return lobby
}
