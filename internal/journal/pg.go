package journal

import (
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"gorm.io/gorm"

	"main/internal/cache"
	"main/pkg/conn"
)

// Entry mirrors one sync event row.
type Entry struct {
	ID         uint      `gorm:"primaryKey"`
	Kind       string    `gorm:"index;size:32"`
	EntityType string    `gorm:"index;size:32"`
	EntityID   string    `gorm:"index;size:128"`
	UpdateID   string    `gorm:"size:36"`
	ConflictID string    `gorm:"size:36"`
	Strategy   string    `gorm:"size:16"`
	Version    int64
	At         time.Time
}

// TableName fixes the journal table name.
func (Entry) TableName() string {
	return "sync_events"
}

// PG persists sync events to PostgreSQL. Insert failures are logged
// and dropped; journaling must never stall the cache.
type PG struct {
	db *gorm.DB
}

// NewPG migrates the journal table and returns a recorder.
func NewPG(client *conn.Client) (*PG, error) {
	db := client.DB()
	if db == nil {
		return nil, errors.New("nil postgres client")
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, errors.Wrap(err, "migrate sync_events")
	}
	return &PG{db: db}, nil
}

// Record inserts the event row.
func (p *PG) Record(e cache.Event) {
	entry := Entry{
		Kind:       e.Kind.String(),
		EntityType: e.Key.Type,
		EntityID:   e.Key.ID,
		UpdateID:   e.UpdateID,
		ConflictID: e.ConflictID,
		Strategy:   string(e.Strategy),
		Version:    e.Version,
		At:         e.At,
	}
	if err := p.db.Create(&entry).Error; err != nil {
		logs.Errorf("journal insert failed, err: %+v", err)
	}
}
