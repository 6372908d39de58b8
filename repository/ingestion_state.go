package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"paper-harvest/models"
)

// IngestionStateRepository bündelt alle Zugriffe auf den Ingestion-State.
type IngestionStateRepository struct{}

// GetByDatasourceDomain liefert den State für ein (Datasource, Domain)-Paar,
// nil wenn keiner existiert.
func (IngestionStateRepository) GetByDatasourceDomain(tx *gorm.DB, datasourceID, domainID uuid.UUID) (*models.IngestionState, error) {
	var state models.IngestionState
	err := tx.Where("datasource_id = ? AND domain_id = ?", datasourceID, domainID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// GetActive liefert alle aktivierten States einer Datasource.
func (IngestionStateRepository) GetActive(tx *gorm.DB, datasourceID uuid.UUID) ([]models.IngestionState, error) {
	var states []models.IngestionState
	err := tx.Where("datasource_id = ? AND is_active = ?", datasourceID, true).Find(&states).Error
	return states, err
}

// Create legt einen State an; bei verlorenem Wettlauf wird die vorhandene
// Zeile gelesen und created=false gemeldet.
func (r IngestionStateRepository) Create(tx *gorm.DB, state *models.IngestionState) (*models.IngestionState, bool, error) {
	if err := tx.Create(state).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, gerr := r.GetByDatasourceDomain(tx, state.DatasourceID, state.DomainID)
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
	return state, true, nil
}

// AdvanceCursor schiebt die Wasserstandsmarke eines States vor. Die Marke
// bewegt sich nur vorwärts; ein älteres Datum lässt die Zeile unverändert.
func (IngestionStateRepository) AdvanceCursor(tx *gorm.DB, stateID uint, cursor time.Time) error {
	return tx.Model(&models.IngestionState{}).
		Where("id = ? AND cursor_date <= ?", stateID, cursor).
		Update("cursor_date", cursor).Error
}
