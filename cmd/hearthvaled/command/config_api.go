package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"

	"github.com/talgya/hearthvale/internal/api"
	"github.com/talgya/hearthvale/internal/engine"
	"github.com/talgya/hearthvale/internal/persistence"
)

type ApiConfig struct {
	Port     int    `json:"port"`
	AdminKey string `json:"admin_key"`
	RelayKey string `json:"relay_key"`
	Timeout  string `json:"timeout"`
	ActRate  int    `json:"act_rate"`
}

func (c *ApiConfig) validate() error {
	el := errors.NewErrorList()

	if c.Port < 0 || c.Port > 65535 {
		el.Add(fmt.Errorf("port must be between 0 and 65535"))
	}
	if c.Timeout != "" {
		if _, err := time.ParseDuration(c.Timeout); err != nil {
			el.Add(fmt.Errorf("parsing timeout: %w", err))
		}
	}
	if c.ActRate < 0 {
		el.Add(fmt.Errorf("act_rate must not be negative"))
	}

	return el.Err()
}

// buildServer returns nil when the API is disabled.
func (c *ApiConfig) buildServer(eng *engine.Engine, db *persistence.DB) (*api.Server, error) {
	if c.Port == 0 {
		return nil, nil
	}
	s := &api.Server{
		Eng:      eng,
		DB:       db,
		Port:     c.Port,
		AdminKey: c.AdminKey,
		RelayKey: c.RelayKey,
		ActRate:  c.ActRate,
	}
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parsing timeout: %w", err)
		}
		s.Timeout = d
	}
	return s, nil
}
