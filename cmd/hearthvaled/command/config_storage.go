package command

import (
	"fmt"

	"github.com/pixil98/go-errors"

	"github.com/talgya/hearthvale/internal/archive"
	"github.com/talgya/hearthvale/internal/persistence"
)

type StorageConfig struct {
	Database   string `json:"database"`
	ArchiveDir string `json:"archive_dir"`
	SaveFile   string `json:"save_file"`
}

func (c *StorageConfig) validate() error {
	el := errors.NewErrorList()
	if c.Database == "" && c.SaveFile == "" {
		el.Add(fmt.Errorf("one of database or save_file is required"))
	}
	return el.Err()
}

func (c *StorageConfig) openDB() (*persistence.DB, error) {
	if c.Database == "" {
		return nil, nil
	}
	db, err := persistence.Open(c.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func (c *StorageConfig) buildArchive(seasonLength int) *archive.EventLogger {
	if c.ArchiveDir == "" {
		return nil
	}
	return archive.NewEventLogger(c.ArchiveDir, seasonLength)
}
