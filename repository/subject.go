package repository

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"paper-harvest/models"
)

// SubjectRepository bündelt alle Zugriffe auf Subjects. Subject-Codes sind
// global eindeutig, daher filtern die Lookups nicht nach Datasource.
type SubjectRepository struct{}

// GetByCode liefert das Subject mit dem gegebenen Code, nil wenn es nicht
// existiert.
func (SubjectRepository) GetByCode(tx *gorm.DB, code string) (*models.Subject, error) {
	var subject models.Subject
	err := tx.Where("code = ?", code).First(&subject).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

// GetByCodes liefert alle Subjects mit einem der Codes.
func (SubjectRepository) GetByCodes(tx *gorm.DB, codes []string) ([]models.Subject, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var subjects []models.Subject
	err := tx.Where("code IN ?", codes).Find(&subjects).Error
	return subjects, err
}

// GetByDomain liefert alle Subjects einer Domain.
func (SubjectRepository) GetByDomain(tx *gorm.DB, domainID uuid.UUID) ([]models.Subject, error) {
	var subjects []models.Subject
	err := tx.Where("domain_id = ?", domainID).Find(&subjects).Error
	return subjects, err
}

// Create legt ein Subject an; bei verlorenem Wettlauf wird die vorhandene
// Zeile gelesen und created=false gemeldet.
func (r SubjectRepository) Create(tx *gorm.DB, subject *models.Subject) (*models.Subject, bool, error) {
	if err := tx.Create(subject).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, gerr := r.GetByCode(tx, subject.Code)
			if gerr != nil {
				return nil, false, gerr
			}
			if existing == nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return subject, true, nil
}

// CreateMany legt mehrere Subjects in einem Rutsch an. Unique-Konflikte
// werden hier nicht aufgelöst; der Aufrufer fällt dann auf Einzel-Creates
// zurück.
func (SubjectRepository) CreateMany(tx *gorm.DB, subjects []*models.Subject) error {
	if len(subjects) == 0 {
		return nil
	}
	return tx.Create(subjects).Error
}

// Delete entfernt ein Subject. Administrativer Pfad, nicht Teil der Ingestion.
func (SubjectRepository) Delete(tx *gorm.DB, subject *models.Subject) error {
	return tx.Delete(subject).Error
}
