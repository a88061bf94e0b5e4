package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"controlling_poolspa/internal/models"
	"controlling_poolspa/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// --- parseInterval unit tests ---

func TestParseInterval(t *testing.T) {
	h := NewHandler(&service.Service{}, nil)

	cases := []struct {
		name string
		u    string
		want time.Duration
	}{
		{"default_when_missing", "/ws", 1 * time.Second},
		{"interval_string_valid", "/ws?interval=200ms", 200 * time.Millisecond},
		{"interval_ms_valid", "/ws?interval_ms=150", 150 * time.Millisecond},
		{"interval_too_large", "/ws?interval=20s", 1 * time.Second},
		{"interval_ms_too_large", "/ws?interval_ms=20000", 1 * time.Second},
		{"interval_invalid_string", "/ws?interval=bogus", 1 * time.Second},
		{"interval_ms_invalid", "/ws?interval_ms=NaN", 1 * time.Second},
		{"both_present_interval_wins", "/ws?interval=2s&interval_ms=150", 2 * time.Second},
		{"both_present_invalid_interval_ms_used", "/ws?interval=bogus&interval_ms=250", 250 * time.Millisecond},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.u, nil)
			c, _ := gin.CreateTestContext(w)
			c.Request = req
			got := h.parseInterval(c)
			if got != tc.want {
				t.Fatalf("got %v, want %v for %s", got, tc.want, tc.u)
			}
		})
	}
}

// --- websocket integration tests ---

func TestWebSocket_StateStream_InitialAndPeriodic(t *testing.T) {
	// Mock monitoring returns a fixed state
	water := 98.5
	mon := &mockMonitoring{state: models.PoolState{
		Mode:         "HEAT_SPA",
		WaterTempF:   &water,
		SpaSetF:      102,
		RemainingSec: 60,
		HeaterOn:     true,
	}}
	s := &service.Service{Monitoring: mon}

	// Build router with /ws
	r := gin.New()
	h := NewHandler(s, nil)
	r.GET("/ws", h.wsConnect)

	srv := httptest.NewServer(r)
	defer srv.Close()

	// Build ws URL
	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	q := u.Query()
	q.Set("interval_ms", "20") // fast ticks for the test
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	type envelope struct {
		Type  string          `json:"type"`
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}

	// Read initial state
	_ = conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if env.Type != "state" || len(env.Data) == 0 {
		t.Fatalf("bad envelope: %+v", env)
	}
	var st models.PoolState
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if st.Mode != "HEAT_SPA" || st.WaterTempF == nil || *st.WaterTempF != 98.5 || !st.HeaterOn {
		t.Fatalf("unexpected state: %+v", st)
	}

	// Read a subsequent tick
	_ = conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	env = envelope{}
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read second: %v", err)
	}
	if env.Type != "state" {
		t.Fatalf("expected type=state, got %+v", env)
	}
}

func TestWebSocket_InitialGetStateError_Closes(t *testing.T) {
	mon := &mockMonitoring{err: errors.New("boom")}
	s := &service.Service{Monitoring: mon}

	r := gin.New()
	h := NewHandler(s, nil)
	r.GET("/ws", h.wsConnect)

	srv := httptest.NewServer(r)
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	// The server should close immediately after failing initial GetState/WriteJSON
	_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	var raw json.RawMessage
	if err := conn.ReadJSON(&raw); err == nil {
		t.Fatalf("expected read error (closed), got message: %s", string(raw))
	}
}

func TestWebSocket_CommandsReachControl(t *testing.T) {
	ctl := &mockControl{}
	auth := &mockAuth{parseID: 3}
	s := &service.Service{Authorization: auth, Monitoring: &mockMonitoring{}, Control: ctl}

	srv := httptest.NewServer(newTestRouter(s))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	u.RawQuery = url.Values{"token": {"panel-token"}}.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()
	if auth.lastParseToken != "panel-token" {
		t.Fatalf("ParseToken got %q", auth.lastParseToken)
	}

	for _, msg := range []string{
		`{"type":"button","button":5}`,
		`{"type":"temp","direction":"up"}`,
		`{"type":"bogus"}`,
		`{"type":"stop"}`,
	} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatalf("write %s: %v", msg, err)
		}
	}

	deadline := time.Now().Add(time.Second)
	for {
		buttons, dirs, stops := ctl.calls()
		if stops == 1 {
			if len(buttons) != 1 || buttons[0] != 5 || len(dirs) != 1 || dirs[0] != "up" {
				t.Fatalf("unexpected calls: buttons=%v dirs=%v", buttons, dirs)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("commands not forwarded: buttons=%v dirs=%v stops=%d", buttons, dirs, stops)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocket_UnauthenticatedHandshakeRefused(t *testing.T) {
	cases := []struct {
		name   string
		query  url.Values
		header http.Header
	}{
		{name: "no token"},
		{name: "bad query token", query: url.Values{"token": {"forged"}}},
		{name: "bad bearer header", header: authHeader("forged")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctl := &mockControl{}
			s := &service.Service{
				Authorization: &mockAuth{parseErr: errors.New("token is expired")},
				Monitoring:    &mockMonitoring{},
				Control:       ctl,
			}
			srv := httptest.NewServer(newTestRouter(s))
			defer srv.Close()

			u, _ := url.Parse(srv.URL)
			u.Scheme = "ws"
			u.Path = "/ws"
			u.RawQuery = tc.query.Encode()
			conn, resp, err := websocket.DefaultDialer.Dial(u.String(), tc.header)
			if err == nil {
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"stop"}`))
				conn.Close()
				t.Fatalf("handshake accepted without a valid token")
			}
			if resp == nil || resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("want 401 handshake response, got resp=%v err=%v", resp, err)
			}
			if _, _, stops := ctl.calls(); stops != 0 {
				t.Fatalf("stop reached control without a token")
			}
		})
	}
}
