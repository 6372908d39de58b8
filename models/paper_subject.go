package models

import "github.com/google/uuid"

// PaperSubject verknüpft ein Paper mit einem Subject. Pro Paper existiert genau
// eine Zeile mit is_primary=true (das Primär-Subject) und beliebig viele
// Sekundär-Zeilen.
type PaperSubject struct {
	PaperID   uuid.UUID `json:"paper_id" gorm:"type:uuid;primaryKey"`
	SubjectID uuid.UUID `json:"subject_id" gorm:"type:uuid;primaryKey"`
	IsPrimary bool      `json:"is_primary" gorm:"not null;default:false"`
}

// TableName gibt explizit den Tabellennamen an.
func (PaperSubject) TableName() string {
	return "paper_subjects"
}
