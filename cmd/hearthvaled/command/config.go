package command

import (
	"encoding/json"
	"fmt"

	"github.com/pixil98/go-errors"

	"github.com/talgya/hearthvale/internal/config"
)

type Config struct {
	Village  config.Options `json:"village"`
	Storage  StorageConfig  `json:"storage"`
	Api      ApiConfig      `json:"api"`
	Nats     NatsConfig     `json:"nats"`
	LogLevel string         `json:"log_level"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if err := c.Village.Validate(); err != nil {
		el.Add(fmt.Errorf("village: %w", err))
	}
	if _, err := config.ParseLevel(c.LogLevel); err != nil {
		el.Add(err)
	}

	el.Add(c.Storage.validate())
	el.Add(c.Api.validate())
	el.Add(c.Nats.validate())

	return el.Err()
}

// UnmarshalJSON lays the village section over the default options so a
// config only needs the fields it changes.
func (c *Config) UnmarshalJSON(b []byte) error {
	type plain Config
	p := plain{Village: config.Default()}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*c = Config(p)
	return nil
}
