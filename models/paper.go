package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Paper repräsentiert die Metadaten einer wissenschaftlichen Arbeit.
// PaperIdentifier ist der natürliche Schlüssel der Datasource (z.B. die
// arXiv-ID) und global eindeutig; er ist der Idempotenz-Schlüssel der
// Paper-Ingestion.
type Paper struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	DatasourceID uuid.UUID `json:"datasource_id" gorm:"type:uuid;not null;index"`
	DomainID     uuid.UUID `json:"domain_id" gorm:"type:uuid;not null;index"`
	MainAuthorID uuid.UUID `json:"main_author_id" gorm:"type:uuid;not null"`

	Title           string    `json:"title" gorm:"not null"`
	Abstract        string    `json:"abstract,omitempty" gorm:"type:text"`
	PaperIdentifier string    `json:"paper_identifier" gorm:"uniqueIndex;not null"`
	PublishDate     time.Time `json:"publish_date" gorm:"type:date;not null"`
}

// TableName gibt explizit den Tabellennamen an.
func (Paper) TableName() string {
	return "papers"
}

func (p *Paper) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
