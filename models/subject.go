package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subject repräsentiert einen Blatt-Knoten der Taxonomie unterhalb einer Domain,
// z.B. "cs.AI". Der Code ist global eindeutig.
type Subject struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	DomainID uuid.UUID `json:"domain_id" gorm:"type:uuid;not null;index"`
	Code     string    `json:"code" gorm:"uniqueIndex;not null"`
	Name     string    `json:"name" gorm:"not null"`
}

// TableName gibt explizit den Tabellennamen an.
func (Subject) TableName() string {
	return "subjects"
}

func (s *Subject) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
