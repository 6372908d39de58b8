package models

import "github.com/google/uuid"

// PaperAuthor verknüpft ein Paper mit allen seinen Autoren (n:m). Der
// Hauptautor steht zusätzlich direkt am Paper (main_author_id).
type PaperAuthor struct {
	PaperID  uuid.UUID `json:"paper_id" gorm:"type:uuid;primaryKey"`
	AuthorID uuid.UUID `json:"author_id" gorm:"type:uuid;primaryKey"`
}

// TableName gibt explizit den Tabellennamen an.
func (PaperAuthor) TableName() string {
	return "paper_authors"
}
