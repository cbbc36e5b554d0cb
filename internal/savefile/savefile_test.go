package savefile

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"

	"github.com/talgya/hearthvale/internal/clock"
	"github.com/talgya/hearthvale/internal/config"
	"github.com/talgya/hearthvale/internal/decision"
	"github.com/talgya/hearthvale/internal/ecs"
	"github.com/talgya/hearthvale/internal/engine"
	"github.com/talgya/hearthvale/internal/event"
	"github.com/talgya/hearthvale/internal/weather"
)

func fixedNow() time.Time { return time.Unix(1700000000, 0) }

func newVillage(t *testing.T) *engine.Simulation {
	t.Helper()
	s, err := engine.NewVillage(config.Default(), engine.WithNow(fixedNow), engine.WithRunID("test-run"))
	if err != nil {
		t.Fatalf("new village: %v", err)
	}
	return s
}

func TestEncode_Deterministic(t *testing.T) {
	run := func() []byte {
		s := newVillage(t)
		s.AdvanceDays(5)
		data, err := Encode(s)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		return data
	}

	if !bytes.Equal(run(), run()) {
		t.Errorf("identical runs produced different saves")
	}
}

func TestEncode_ValidatesAgainstSchema(t *testing.T) {
	s := newVillage(t)
	s.AdvanceDays(1)
	data, err := Encode(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := Validate(data); err != nil {
		t.Fatalf("own save rejected: %v", err)
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	s := newVillage(t)
	s.AdvanceDays(3)
	store := s.Market.ShopAt(s.World.ByName("General Store").ID)
	if _, err := s.Act(engine.Command{Action: decision.Trade, Shop: store.ID, Item: "Corn Seeds", Quantity: 1}); err != nil {
		t.Fatalf("buy: %v", err)
	}
	data, err := Encode(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	loaded, err := Decode(data, config.Default(), engine.WithNow(fixedNow))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	again, err := Encode(loaded)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Errorf("save changed across a load")
	}

	testutil.AssertEqual(t, "run id", loaded.RunID, "test-run")
	testutil.AssertEqual(t, "day", loaded.Clock.Day, 4)
	testutil.AssertEqual(t, "player", loaded.Player, s.Player)
	testutil.AssertEqual(t, "seeds", loaded.Registry.Inventory(loaded.Player).Count("Corn Seeds"), 1)
	testutil.AssertEqual(t, "agents", len(loaded.Agents()), 3)
	testutil.AssertEqual(t, "decisions", loaded.Decisions.Len(), s.Decisions.Len())
	testutil.AssertEqual(t, "event stats", loaded.Events.Stats().Total, s.Events.Stats().Total)
}

func TestDecode_ContinuesIDs(t *testing.T) {
	s := newVillage(t)
	s.AdvanceDays(1)
	data, err := Encode(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	loaded, err := Decode(data, config.Default(), engine.WithNow(fixedNow))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	lastEvent := s.Events.Recent(1)[0].ID
	lastDecision := s.Decisions.Recent(1)[0].ID
	loaded.TickPeriod()

	testutil.AssertEqual(t, "next event", loaded.Events.All()[s.Events.Len()].ID, lastEvent+1)
	testutil.AssertEqual(t, "next decision", loaded.Decisions.All()[s.Decisions.Len()].ID, lastDecision+1)
}

func TestDecode_PlainFile(t *testing.T) {
	data := []byte(`{
		"metadata": {"game_name": "Oakridge", "created_at": 1700000000, "last_saved": 1700000500, "version": "1.0"},
		"time": {"day_count": 3, "time_of_day": "evening", "season": "summer", "year": 2},
		"weather": {"current_weather": "rainy"},
		"player": {"player_id": 0},
		"entities": [
			{"id": 1, "name": "Ann", "entity_type": "Villager",
			 "components": [{"kind": "needs", "hunger": 50, "energy": 40, "social": 30}]},
			{"id": 2, "name": "Bo", "entity_type": "Villager", "components": []}
		],
		"event_log": {"events": [
			{"id": 7, "type": "Environmental", "subtype": "WeatherChanged", "timestamp": 1700000400,
			 "game_day": 3, "game_time": "morning", "source_entity_id": -1, "target_entity_id": -1,
			 "location": "", "description": "Rain rolls in"}
		]}
	}`)

	s, err := Decode(data, config.Default())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	testutil.AssertEqual(t, "world name", s.Options.WorldName, "Oakridge")
	testutil.AssertEqual(t, "day", s.Clock.Day, 3)
	testutil.AssertEqual(t, "weather", s.Weather.Current, weather.Rainy)
	testutil.AssertEqual(t, "entities", s.Registry.Len(), 2)
	testutil.AssertEqual(t, "type", s.Registry.Get(2).Archetype, "Villager")
	testutil.AssertEqual(t, "active", s.Registry.Alive(1), true)
	testutil.AssertEqual(t, "hunger", s.Registry.Needs(1).Hunger, 50.0)
	testutil.AssertEqual(t, "events", s.Events.Len(), 1)
	testutil.AssertEqual(t, "event", s.Events.Recent(1)[0].SubKind, event.WeatherChanged)
	testutil.AssertEqual(t, "decisions", s.Decisions.Len(), 0)
}

func TestEncode_Layout(t *testing.T) {
	s := newVillage(t)
	s.AdvanceDays(1)
	data, err := Encode(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var doc struct {
		Metadata struct {
			Version string `json:"version"`
		} `json:"metadata"`
		Entities []struct {
			ID         int    `json:"id"`
			EntityType string `json:"entity_type"`
		} `json:"entities"`
		EventLog    *json.RawMessage `json:"event_log"`
		DecisionLog *json.RawMessage `json:"decision_log"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	testutil.AssertEqual(t, "version", doc.Metadata.Version, "1.0")
	testutil.AssertEqual(t, "has event log", doc.EventLog != nil, true)
	testutil.AssertEqual(t, "has decision log", doc.DecisionLog != nil, true)
	if len(doc.Entities) == 0 {
		t.Fatalf("no entities saved")
	}
	testutil.AssertEqual(t, "first id", doc.Entities[0].ID, 1)
	if doc.Entities[0].EntityType == "" {
		t.Errorf("entity saved without entity_type")
	}
}

func TestDecode_Tolerant(t *testing.T) {
	data := []byte(`{
		"metadata": {"version": "1.4", "future_field": true},
		"time": {"day_count": 3, "time_of_day": "evening", "season": "summer", "year": 2},
		"entities": [
			{"id": 1, "name": "Ann", "entity_type": "Villager", "nickname": "Annie",
			 "components": [{"kind": "needs", "hunger": 50, "energy": 40, "social": 30, "mood": "fine"}]},
			{"id": 4, "name": "Gone", "entity_type": "Villager", "inactive": true, "components": []}
		],
		"pets": []
	}`)

	s, err := Decode(data, config.Default())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	testutil.AssertEqual(t, "day", s.Clock.Day, 3)
	testutil.AssertEqual(t, "period", s.Clock.Period, clock.Evening)
	testutil.AssertEqual(t, "season", s.Clock.Season, clock.Summer)
	testutil.AssertEqual(t, "year", s.Clock.Year, 2)
	testutil.AssertEqual(t, "hunger", s.Registry.Needs(1).Hunger, 50.0)
	testutil.AssertEqual(t, "events", s.Events.Len(), 0)
	testutil.AssertEqual(t, "agents", len(s.Agents()), 1)
	testutil.AssertEqual(t, "retired", s.Registry.Alive(4), false)
	testutil.AssertEqual(t, "next id", s.Registry.NextID(), ecs.EntityID(5))
}

func TestDecode_Rejects(t *testing.T) {
	valid := `"time": {"day_count": 1, "time_of_day": "morning", "season": "spring", "year": 1}, "entities": []`

	tests := map[string]struct {
		data   string
		expErr error
	}{
		"not json": {
			data:   `{"metadata":`,
			expErr: ErrInvalidSave,
		},
		"missing time": {
			data:   `{"metadata": {"version": "1.0"}, "entities": []}`,
			expErr: ErrInvalidSave,
		},
		"unknown season": {
			data:   `{"metadata": {"version": "1.0"}, "time": {"day_count": 1, "time_of_day": "morning", "season": "monsoon", "year": 1}, "entities": []}`,
			expErr: ErrInvalidSave,
		},
		"unknown component kind": {
			data:   `{"metadata": {"version": "1.0"}, "time": {"day_count": 1, "time_of_day": "morning", "season": "spring", "year": 1}, "entities": [{"id": 1, "name": "x", "entity_type": "Crop", "components": [{"kind": "mana"}]}]}`,
			expErr: ErrInvalidSave,
		},
		"entities as object": {
			data:   `{"metadata": {"version": "1.0"}, "time": {"day_count": 1, "time_of_day": "morning", "season": "spring", "year": 1}, "entities": {"entities": []}}`,
			expErr: ErrInvalidSave,
		},
		"future major version": {
			data:   `{"metadata": {"version": "2.0"}, ` + valid + `}`,
			expErr: ErrUnsupportedVersion,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data), config.Default())
			if !errors.Is(err, tt.expErr) {
				t.Fatalf("expected %v, got %v", tt.expErr, err)
			}
		})
	}
}

func TestWriteReadFile(t *testing.T) {
	s := newVillage(t)
	s.AdvanceDays(1)
	path := filepath.Join(t.TempDir(), "saves", "village.json")

	if err := WriteFile(s, path); err != nil {
		t.Fatalf("write: %v", err)
	}
	saved := s.Events.Recent(1)[0]
	testutil.AssertEqual(t, "saved event", saved.SubKind, event.GameSaved)

	loaded, err := ReadFile(path, config.Default())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	last := loaded.Events.Recent(1)[0]
	testutil.AssertEqual(t, "loaded event", last.SubKind, event.GameLoaded)
	if !strings.Contains(last.Description, "village.json") {
		t.Errorf("unexpected description %q", last.Description)
	}

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.json"), config.Default())
	if err == nil {
		t.Errorf("expected error for missing file")
	}
}
