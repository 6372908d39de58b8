package repository

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"paper-harvest/models"
)

// DomainRepository bündelt alle Zugriffe auf Domains.
type DomainRepository struct{}

// GetByCode liefert die Domain mit dem gegebenen Code innerhalb einer
// Datasource, nil wenn sie nicht existiert.
func (DomainRepository) GetByCode(tx *gorm.DB, code string, datasourceID uuid.UUID) (*models.Domain, error) {
	var domain models.Domain
	err := tx.Where("code = ? AND datasource_id = ?", code, datasourceID).First(&domain).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain, nil
}

// GetByCodes liefert alle Domains einer Datasource mit einem der Codes.
func (DomainRepository) GetByCodes(tx *gorm.DB, codes []string, datasourceID uuid.UUID) ([]models.Domain, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var domains []models.Domain
	err := tx.Where("code IN ? AND datasource_id = ?", codes, datasourceID).Find(&domains).Error
	return domains, err
}

// GetByID liefert die Domain mit der gegebenen ID, nil wenn sie nicht
// existiert.
func (DomainRepository) GetByID(tx *gorm.DB, id uuid.UUID) (*models.Domain, error) {
	var domain models.Domain
	err := tx.Where("id = ?", id).First(&domain).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain, nil
}

// GetByDatasource liefert alle Domains einer Datasource.
func (DomainRepository) GetByDatasource(tx *gorm.DB, datasourceID uuid.UUID) ([]models.Domain, error) {
	var domains []models.Domain
	err := tx.Where("datasource_id = ?", datasourceID).Find(&domains).Error
	return domains, err
}

// Create legt eine Domain an; bei verlorenem Wettlauf wird die vorhandene
// Zeile gelesen und created=false gemeldet.
func (r DomainRepository) Create(tx *gorm.DB, domain *models.Domain) (*models.Domain, bool, error) {
	if err := tx.Create(domain).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, gerr := r.GetByCode(tx, domain.Code, domain.DatasourceID)
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
	return domain, true, nil
}

// CreateMany legt mehrere Domains in einem Rutsch an. Unique-Konflikte werden
// hier nicht aufgelöst; der Aufrufer fällt dann auf Einzel-Creates zurück.
func (DomainRepository) CreateMany(tx *gorm.DB, domains []*models.Domain) error {
	if len(domains) == 0 {
		return nil
	}
	return tx.Create(domains).Error
}

// Delete entfernt eine Domain. Administrativer Pfad, nicht Teil der Ingestion.
func (DomainRepository) Delete(tx *gorm.DB, domain *models.Domain) error {
	return tx.Delete(domain).Error
}
