package command

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestConfig_UnmarshalKeepsDefaults(t *testing.T) {
	var c Config
	err := json.Unmarshal([]byte(`{"village": {"seed": 7}, "storage": {"save_file": "village.json"}}`), &c)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	testutil.AssertEqual(t, "seed", c.Village.Seed, int64(7))
	testutil.AssertEqual(t, "season length", c.Village.SeasonLengthDays, 28)
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		json   string
		expErr bool
	}{
		"minimal": {
			json: `{"storage": {"database": "village.db"}}`,
		},
		"no storage": {
			json:   `{}`,
			expErr: true,
		},
		"bad log level": {
			json:   `{"log_level": "loud", "storage": {"database": "village.db"}}`,
			expErr: true,
		},
		"bad api timeout": {
			json:   `{"api": {"port": 8080, "timeout": "soon"}, "storage": {"database": "village.db"}}`,
			expErr: true,
		},
		"bad port": {
			json:   `{"api": {"port": 70000}, "storage": {"database": "village.db"}}`,
			expErr: true,
		},
		"bad nats timeout": {
			json:   `{"nats": {"enabled": true, "start_timeout": "x"}, "storage": {"database": "village.db"}}`,
			expErr: true,
		},
		"bad village": {
			json:   `{"village": {"season_length_days": 2}, "storage": {"database": "village.db"}}`,
			expErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var c Config
			if err := json.Unmarshal([]byte(tt.json), &c); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			err := c.Validate()
			testutil.AssertEqual(t, "error", err != nil, tt.expErr)
		})
	}
}

func TestBuildWorkers(t *testing.T) {
	dir := t.TempDir()
	c := &Config{}
	raw := `{"storage": {"save_file": "` + filepath.ToSlash(filepath.Join(dir, "village.json")) + `"}, "api": {"port": 18080}, "nats": {"enabled": true, "port": -1}}`
	if err := json.Unmarshal([]byte(raw), c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	workers, err := BuildWorkers(c)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, name := range []string{"village", "api", "feed"} {
		if _, ok := workers[name]; !ok {
			t.Errorf("missing worker %q", name)
		}
	}

	if _, err := BuildWorkers("not a config"); err == nil {
		t.Errorf("expected error for wrong config type")
	}
}
