package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Seednode/snakebox/games"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, cfg *Config) (*httptest.Server, *Lobby) {
	t.Helper()

	errs := make(chan error, 16)
	go drainErrors(cfg, errs)

	mux, lobby := newRouter(cfg, errs)
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		lobby.stop()
		srv.Close()
	})

	return srv, lobby
}

func testConfig() *Config {
	return &Config{
		tickRate:      4,
		validateFood:  true,
		playerTimeout: 5 * time.Second,
	}
}

func wsURL(srv *httptest.Server, cfg *Config) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + cfg.prefix + "/snake/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func write(t *testing.T, conn *websocket.Conn, m games.ClientMessage) {
	t.Helper()

	if err := conn.WriteJSON(m); err != nil {
		t.Fatalf("write %s: %v", m.Type, err)
	}
}

func expect(t *testing.T, conn *websocket.Conn, typ string) games.ServerMessage {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var m games.ServerMessage
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("waiting for %s: %v", typ, err)
	}
	if m.Type != typ {
		t.Fatalf("got %s, want %s", m.Type, typ)
	}
	return m
}

// pair connects two players and plays them through to gameStart.
func pair(t *testing.T, url string) (a, b *websocket.Conn, start games.ServerMessage, found [2]games.ServerMessage) {
	t.Helper()

	a = dial(t, url)
	write(t, a, games.ClientMessage{Type: games.TypeFindGame})
	expect(t, a, games.TypeWaitingForPlayer)

	b = dial(t, url)
	write(t, b, games.ClientMessage{Type: games.TypeFindGame})
	found[0] = expect(t, a, games.TypeGameFound)
	found[1] = expect(t, b, games.TypeGameFound)

	write(t, a, games.ClientMessage{Type: games.TypePlayerReady})
	for _, c := range []*websocket.Conn{a, b} {
		if m := expect(t, c, games.TypePlayerReadyUpdate); m.ReadyPlayers != 1 {
			t.Fatalf("readyPlayers = %d, want 1", m.ReadyPlayers)
		}
	}

	write(t, b, games.ClientMessage{Type: games.TypePlayerReady})
	for _, c := range []*websocket.Conn{a, b} {
		if m := expect(t, c, games.TypePlayerReadyUpdate); m.ReadyPlayers != 2 {
			t.Fatalf("readyPlayers = %d, want 2", m.ReadyPlayers)
		}
		start = expect(t, c, games.TypeGameStart)
	}

	return a, b, start, found
}

func TestWebsocketMatch(t *testing.T) {
	cfg := testConfig()
	srv, _ := newTestServer(t, cfg)

	a, b, start, found := pair(t, wsURL(srv, cfg))

	if games.SlotOf(found[0].Players, found[0].PlayerID) != 0 ||
		games.SlotOf(found[1].Players, found[1].PlayerID) != 1 {
		t.Fatalf("gameFound does not identify the recipients: %+v / %+v", found[0], found[1])
	}
	if start.InitialFood == nil || *start.InitialFood != *found[0].InitialFood {
		t.Fatalf("gameStart food %v differs from gameFound food %v", start.InitialFood, found[0].InitialFood)
	}
	if start.TickRate != 4 {
		t.Fatalf("tickRate = %d, want 4", start.TickRate)
	}

	write(t, a, games.ClientMessage{Type: games.TypeFoodCollected, Food: start.InitialFood})
	for _, c := range []*websocket.Conn{a, b} {
		m := expect(t, c, games.TypeGameStateUpdate)
		if m.Score1 != 10 || m.Score2 != 0 || m.Length1 != 2 {
			t.Fatalf("unexpected state %+v", m)
		}
		if m.Food == nil || *m.Food == *start.InitialFood {
			t.Fatalf("food did not move: %v", m.Food)
		}
	}

	write(t, a, games.ClientMessage{Type: games.TypePlayerMove, DX: 1})
	if m := expect(t, b, games.TypeOpponentMove); m.DX != 1 || m.DY != 0 {
		t.Fatalf("relayed %d,%d, want 1,0", m.DX, m.DY)
	}

	write(t, a, games.ClientMessage{Type: games.TypeGameOver})
	for _, c := range []*websocket.Conn{a, b} {
		m := expect(t, c, games.TypeGameEnded)
		if m.Winner != games.Player2 || m.WinnerID != found[1].PlayerID {
			t.Fatalf("winner = %s/%s", m.Winner, m.WinnerID)
		}
		if m.FinalScore == nil || m.FinalScore.Player1 != 10 || m.FinalScore.Player2 != 0 {
			t.Fatalf("final score = %+v", m.FinalScore)
		}
	}
}

func TestWebsocketDisconnectNotifiesPeer(t *testing.T) {
	cfg := testConfig()
	srv, lobby := newTestServer(t, cfg)

	a, b, _, _ := pair(t, wsURL(srv, cfg))

	_ = a.Close()
	expect(t, b, games.TypeOpponentDisconnected)

	counts, _ := lobby.Stats()
	if counts.Active != 0 {
		t.Fatalf("room still active after disconnect: %+v", counts)
	}
}

func TestWebsocketUnderPrefix(t *testing.T) {
	cfg := testConfig()
	cfg.prefix = "/games/"
	srv, _ := newTestServer(t, cfg)

	a := dial(t, wsURL(srv, cfg))
	write(t, a, games.ClientMessage{Type: games.TypeFindGame})
	expect(t, a, games.TypeWaitingForPlayer)
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading %s: %v", url, err)
	}
	return resp, body
}

func TestHTTPRoutes(t *testing.T) {
	cfg := testConfig()
	srv, _ := newTestServer(t, cfg)

	tests := []struct {
		path        string
		status      int
		contentType string
		contains    string
	}{
		{"/", http.StatusOK, "text/html", "waiting"},
		{"/snake", http.StatusOK, "text/html", "gameCanvas"},
		{"/assets/snake/app.js", http.StatusOK, "text/javascript", "findGame"},
		{"/assets/snake/app.css", http.StatusOK, "text/css", "canvas"},
		{"/assets/snake/missing.js", http.StatusNotFound, "", ""},
		{"/favicon.svg", http.StatusOK, "image/svg+xml", "<svg"},
		{"/favicons/site.webmanifest", http.StatusOK, "application/manifest+json", "snakebox"},
		{"/healthz", http.StatusOK, "text/plain", "Ok"},
		{"/robots.txt", http.StatusOK, "text/plain", "Disallow: /snake/"},
		{"/version", http.StatusOK, "text/plain", "snakebox v" + releaseVersion},
		{"/pprof/", http.StatusNotFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, srv.URL+tt.path)

			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if !strings.HasPrefix(resp.Header.Get("Content-Type"), tt.contentType) {
				t.Fatalf("content type = %q, want %q", resp.Header.Get("Content-Type"), tt.contentType)
			}
			if !strings.Contains(string(body), tt.contains) {
				t.Fatalf("body does not contain %q", tt.contains)
			}
		})
	}
}

func TestQRCode(t *testing.T) {
	cfg := testConfig()
	srv, _ := newTestServer(t, cfg)

	resp, body := get(t, srv.URL+"/snake/qr")

	if resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("content type = %q", resp.Header.Get("Content-Type"))
	}
	if !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Fatalf("response is not a PNG")
	}
}

func TestStatsEndpoint(t *testing.T) {
	cfg := testConfig()
	srv, _ := newTestServer(t, cfg)

	a := dial(t, wsURL(srv, cfg))
	write(t, a, games.ClientMessage{Type: games.TypeFindGame})
	expect(t, a, games.TypeWaitingForPlayer)

	_, body := get(t, srv.URL+"/snake/stats")

	var counts RoomCounts
	if err := json.Unmarshal(body, &counts); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if counts.Waiting != 1 || counts.Players != 1 {
		t.Fatalf("counts = %+v, want one waiting player", counts)
	}
}

func TestProfileRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.profile = true
	srv, _ := newTestServer(t, cfg)

	resp, _ := get(t, srv.URL+"/pprof/goroutine?debug=1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestPlayFinishesMatch(t *testing.T) {
	cfg := testConfig()
	srv, _ := newTestServer(t, cfg)
	url := wsURL(srv, cfg)

	human := dial(t, url)
	write(t, human, games.ClientMessage{Type: games.TypeFindGame})
	expect(t, human, games.TypeWaitingForPlayer)

	botCfg := &Config{server: url, matches: 1, clientTickRate: 20}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Play(ctx, botCfg)
	}()

	expect(t, human, games.TypeGameFound)
	write(t, human, games.ClientMessage{Type: games.TypePlayerReady})

	for {
		_ = human.SetReadDeadline(time.Now().Add(5 * time.Second))

		var m games.ServerMessage
		if err := human.ReadJSON(&m); err != nil {
			t.Fatalf("waiting for gameStart: %v", err)
		}
		if m.Type == games.TypeGameStart {
			break
		}
	}

	_ = human.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Play returned %v", err)
		}
	case <-ctx.Done():
		t.Fatalf("Play did not return after its opponent left")
	}
}

func TestPlayStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	srv, lobby := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Play(ctx, &Config{server: wsURL(srv, cfg), matches: 1})
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		counts, _ := lobby.Stats()
		if counts.Waiting == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("bot never started waiting")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Play returned %v after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Play did not stop after cancel")
	}
}

func TestPlayDialFailure(t *testing.T) {
	err := Play(context.Background(), &Config{server: "ws://127.0.0.1:1/snake/ws"})
	if err == nil {
		t.Fatalf("expected a dial error")
	}
}
