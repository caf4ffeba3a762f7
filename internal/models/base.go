// Package models holds the persisted entities of the meeting-intelligence
// pipeline and their GORM hooks. Relations are intentionally not declared as
// GORM associations (no auto-preload); they are tagged gorm:"-" and loaded
// explicitly by the repository layer, and cascade delete is implemented by
// hand in BeforeDelete hooks following the entity ownership graph.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel is embedded by every persisted entity.
type BaseModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns a UUID before insert if one hasn't been set already.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
