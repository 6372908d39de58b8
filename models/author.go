package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Author repräsentiert einen Autor. Eindeutig über den Namen; Namensgleichheit
// zweier Personen wird nicht aufgelöst (akzeptierte Einschränkung).
type Author struct {
	ID   uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name string    `json:"name" gorm:"uniqueIndex;not null"`
}

// TableName gibt explizit den Tabellennamen an.
func (Author) TableName() string {
	return "authors"
}

func (a *Author) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
