package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Datasource repräsentiert ein externes Archiv wissenschaftlicher Metadaten (z.B. arXiv).
// Jede Domain und jedes Paper gehört zu genau einer Datasource.
type Datasource struct {
	ID   uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name string    `json:"name" gorm:"uniqueIndex;not null"`
}

// TableName gibt explizit den Tabellennamen an.
func (Datasource) TableName() string {
	return "datasources"
}

// BeforeCreate vergibt eine UUID, falls noch keine gesetzt ist.
func (d *Datasource) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
