package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Domain repräsentiert einen Top-Level-Zweig der Taxonomie innerhalb einer Datasource,
// z.B. "cs" (Computer Science) bei arXiv. Eindeutig pro (code, datasource_id).
type Domain struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	DatasourceID uuid.UUID `json:"datasource_id" gorm:"type:uuid;not null;uniqueIndex:uq_domains_code_datasource;index"`
	Code         string    `json:"code" gorm:"not null;uniqueIndex:uq_domains_code_datasource"`
	Name         string    `json:"name" gorm:"not null"`
}

// TableName gibt explizit den Tabellennamen an.
func (Domain) TableName() string {
	return "domains"
}

func (d *Domain) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
