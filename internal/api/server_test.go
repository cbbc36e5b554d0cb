package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pixil98/go-testutil"

	"github.com/talgya/hearthvale/internal/config"
	"github.com/talgya/hearthvale/internal/decision"
	"github.com/talgya/hearthvale/internal/engine"
	"github.com/talgya/hearthvale/internal/event"
)

func newTestServer(t *testing.T) (*httptest.Server, *engine.Engine) {
	t.Helper()
	sim, err := engine.NewVillage(config.Default(), engine.WithNow(func() time.Time { return time.Unix(1700000000, 0) }))
	if err != nil {
		t.Fatalf("new village: %v", err)
	}
	sim.AdvanceDays(1)

	eng := engine.NewEngine(sim)
	eng.Speed = 0
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Start(ctx) }()

	srv := &Server{Eng: eng, AdminKey: "secret", ActRate: 3}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
	})
	return ts, eng
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK && v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestStatusAndStats(t *testing.T) {
	ts, _ := newTestServer(t)

	var status map[string]any
	testutil.AssertEqual(t, "status code", getJSON(t, ts.URL+"/api/v1/status", &status), http.StatusOK)
	day, _ := status["day"].(float64)
	testutil.AssertEqual(t, "day", day, 2.0)
	seasonDay, _ := status["season_day"].(float64)
	testutil.AssertEqual(t, "season day", seasonDay, 2.0)

	var st engine.Stats
	testutil.AssertEqual(t, "stats code", getJSON(t, ts.URL+"/api/v1/stats", &st), http.StatusOK)
	testutil.AssertEqual(t, "agents", st.Agents, 3)
	if st.Decisions == 0 {
		t.Errorf("expected decisions after a day")
	}
}

func TestQueries(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := map[string]struct {
		path    string
		expCode int
	}{
		"events":             {path: "/api/v1/events?kind=Time&limit=5", expCode: http.StatusOK},
		"events bad kind":    {path: "/api/v1/events?kind=Magic", expCode: http.StatusBadRequest},
		"events bad entity":  {path: "/api/v1/events?entity=x", expCode: http.StatusBadRequest},
		"decisions":          {path: "/api/v1/decisions?entity=1&succeeded=true", expCode: http.StatusOK},
		"decisions bad flag": {path: "/api/v1/decisions?succeeded=maybe", expCode: http.StatusBadRequest},
		"decisions bad act":  {path: "/api/v1/decisions?action=fly", expCode: http.StatusBadRequest},
		"explain":            {path: "/api/v1/decisions/1/explain", expCode: http.StatusOK},
		"explain missing":    {path: "/api/v1/decisions/99999/explain", expCode: http.StatusNotFound},
		"explain bad id":     {path: "/api/v1/decisions/abc/explain", expCode: http.StatusBadRequest},
		"entities":           {path: "/api/v1/entities", expCode: http.StatusOK},
		"entity":             {path: "/api/v1/entities/1", expCode: http.StatusOK},
		"entity missing":     {path: "/api/v1/entities/77", expCode: http.StatusNotFound},
		"relationships":      {path: "/api/v1/entities/1/relationships", expCode: http.StatusOK},
		"relationships none": {path: "/api/v1/entities/77/relationships", expCode: http.StatusNotFound},
		"crops":              {path: "/api/v1/crops", expCode: http.StatusOK},
		"forecast":           {path: "/api/v1/forecast", expCode: http.StatusOK},
		"history without db": {path: "/api/v1/history", expCode: http.StatusServiceUnavailable},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "code", getJSON(t, ts.URL+tt.path, nil), tt.expCode)
		})
	}
}

func TestEventFilter(t *testing.T) {
	ts, _ := newTestServer(t)

	var events []event.Event
	getJSON(t, ts.URL+"/api/v1/events?kind=Time&limit=3", &events)
	testutil.AssertEqual(t, "count", len(events), 3)
	for _, e := range events {
		testutil.AssertEqual(t, "kind", e.Kind, event.Time)
	}
	if events[0].ID > events[2].ID {
		t.Errorf("expected oldest first, got %d before %d", events[0].ID, events[2].ID)
	}

	var recs []decision.Record
	getJSON(t, ts.URL+"/api/v1/decisions?entity=2", &recs)
	if len(recs) == 0 {
		t.Fatalf("expected decisions for entity 2")
	}
	for _, r := range recs {
		testutil.AssertEqual(t, "entity", int(r.EntityID), 2)
	}
}

func TestExplainText(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/decisions/1/explain?format=text")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if !strings.HasPrefix(buf.String(), "Decision #1 by") {
		t.Errorf("unexpected explanation: %q", buf.String())
	}
}

func post(t *testing.T, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAct(t *testing.T) {
	ts, eng := newTestServer(t)

	resp := post(t, ts.URL+"/api/v1/act", "", `{"action": "wait"}`)
	testutil.AssertEqual(t, "wait code", resp.StatusCode, http.StatusOK)
	var res engine.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	testutil.AssertEqual(t, "succeeded", res.Succeeded, true)

	var reasoning string
	_ = eng.Do(context.Background(), func(s *engine.Simulation) {
		rec, _ := s.Decisions.Get(res.DecisionID)
		reasoning = rec.Reasoning
	})
	testutil.AssertEqual(t, "recorded", reasoning, "player command")

	testutil.AssertEqual(t, "unknown action", post(t, ts.URL+"/api/v1/act", "", `{"action": "fly"}`).StatusCode, http.StatusBadRequest)
	testutil.AssertEqual(t, "no-op action", post(t, ts.URL+"/api/v1/act", "", `{"action": "none"}`).StatusCode, http.StatusBadRequest)
	testutil.AssertEqual(t, "rate limited", post(t, ts.URL+"/api/v1/act", "", `{"action": "rest"}`).StatusCode, http.StatusTooManyRequests)
}

func TestAdminEndpoints(t *testing.T) {
	ts, eng := newTestServer(t)

	tests := map[string]struct {
		path    string
		token   string
		body    string
		expCode int
	}{
		"speed without token": {path: "/api/v1/speed", body: `{"speed": 2}`, expCode: http.StatusUnauthorized},
		"speed wrong token":   {path: "/api/v1/speed", token: "nope", body: `{"speed": 2}`, expCode: http.StatusUnauthorized},
		"speed out of range":  {path: "/api/v1/speed", token: "secret", body: `{"speed": 5000}`, expCode: http.StatusBadRequest},
		"snapshot without db": {path: "/api/v1/snapshot", token: "secret", expCode: http.StatusServiceUnavailable},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "code", post(t, ts.URL+tt.path, tt.token, tt.body).StatusCode, tt.expCode)
		})
	}

	resp := post(t, ts.URL+"/api/v1/speed", "secret", `{"speed": 0.5}`)
	testutil.AssertEqual(t, "speed code", resp.StatusCode, http.StatusOK)
	var speed float64
	_ = eng.Do(context.Background(), func(*engine.Simulation) { speed = eng.Speed })
	testutil.AssertEqual(t, "speed", speed, 0.5)
}

func TestStream(t *testing.T) {
	ts, eng := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream?kind=Environmental"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	err = eng.Do(context.Background(), func(s *engine.Simulation) {
		_, _ = s.Bus.Publish(event.NewWeatherChange("sunny", "stormy"))
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for i := 0; i < engine.DefaultQueryLimit+1; i++ {
		var e event.Event
		if err := conn.ReadJSON(&e); err != nil {
			t.Fatalf("read: %v", err)
		}
		testutil.AssertEqual(t, "kind", e.Kind, event.Environmental)
		if strings.Contains(e.Description, "stormy") {
			return
		}
	}
	t.Fatalf("published event never arrived")
}
