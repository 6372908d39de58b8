package models

import (
	"time"

	"github.com/google/uuid"
)

// IngestionState hält pro (Datasource, Domain) den Fortschritt der
// inkrementellen Paper-Ingestion fest. CursorDate ist die Wasserstandsmarke,
// bis zu der Papers bereits geholt wurden; IsActive entscheidet, ob ein
// geplanter Lauf diese Domain verarbeitet.
type IngestionState struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	DatasourceID uuid.UUID `json:"datasource_id" gorm:"type:uuid;not null;uniqueIndex:uq_ingestion_state_datasource_domain;index"`
	DomainID     uuid.UUID `json:"domain_id" gorm:"type:uuid;not null;uniqueIndex:uq_ingestion_state_datasource_domain;index"`
	CursorDate   time.Time `json:"cursor_date" gorm:"type:date;not null"`
	IsActive     bool      `json:"is_active" gorm:"not null;default:false"`
}

// TableName gibt explizit den Tabellennamen an.
func (IngestionState) TableName() string {
	return "ingestion_states"
}
