package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"paper-harvest/models"
	"paper-harvest/repository"
)

// IngestionStateService verwaltet die Wasserstandsmarken der inkrementellen
// Paper-Ingestion. Pro (Datasource, Domain)-Paar existiert höchstens eine
// Zeile; neue Zeilen starten deaktiviert und werden von einem Operator
// freigeschaltet.
type IngestionStateService struct {
	DB     *gorm.DB
	Logger *zap.Logger

	datasourceRepo repository.DatasourceRepository
	domains        repository.DomainRepository
	states         repository.IngestionStateRepository
}

// NewIngestionStateService erstellt einen neuen IngestionStateService.
func NewIngestionStateService(db *gorm.DB, logger *zap.Logger) *IngestionStateService {
	return &IngestionStateService{DB: db, Logger: logger}
}

// EnsureDomainStates legt für jede Domain der Datasource einen State mit dem
// Default-Cursor an, falls noch keiner existiert. Vorhandene States bleiben
// unangetastet, insbesondere Cursor und Aktivierung. Existiert die Datasource
// nicht, passiert nichts.
func (s *IngestionStateService) EnsureDomainStates(ctx context.Context, datasourceName string, defaultCursor time.Time) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		datasourceID, err := s.datasourceRepo.GetUUIDByName(tx, datasourceName)
		if err != nil {
			return err
		}
		if datasourceID == uuid.Nil {
			s.Logger.Warn("Datasource ohne Zeile, keine States angelegt",
				zap.String("datasource", datasourceName))
			return nil
		}

		domains, err := s.domains.GetByDatasource(tx, datasourceID)
		if err != nil {
			return err
		}

		created := 0
		for _, domain := range domains {
			existing, err := s.states.GetByDatasourceDomain(tx, datasourceID, domain.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			_, createdNew, err := s.states.Create(tx, &models.IngestionState{
				DatasourceID: datasourceID,
				DomainID:     domain.ID,
				CursorDate:   defaultCursor,
				IsActive:     false,
			})
			if err != nil {
				return err
			}
			if createdNew {
				created++
			}
		}
		if created > 0 {
			s.Logger.Info("Ingestion-States angelegt",
				zap.String("datasource", datasourceName),
				zap.Int("created", created))
		}
		return nil
	})
}

// ActiveStates liefert alle aktivierten States einer Datasource.
func (s *IngestionStateService) ActiveStates(ctx context.Context, datasourceName string) ([]models.IngestionState, error) {
	tx := s.DB.WithContext(ctx)
	datasourceID, err := s.datasourceRepo.GetUUIDByName(tx, datasourceName)
	if err != nil {
		return nil, err
	}
	if datasourceID == uuid.Nil {
		return nil, nil
	}
	return s.states.GetActive(tx, datasourceID)
}

// AdvanceCursor schiebt die Wasserstandsmarke eines States vor. Rückwärts
// bewegt sie sich nie; ein älterer Cursor lässt die Zeile unverändert.
func (s *IngestionStateService) AdvanceCursor(ctx context.Context, stateID uint, cursor time.Time) error {
	return s.states.AdvanceCursor(s.DB.WithContext(ctx), stateID, cursor)
}

// SetActive schaltet einen State frei oder sperrt ihn. Administrativer Pfad.
func (s *IngestionStateService) SetActive(ctx context.Context, stateID uint, active bool) error {
	result := s.DB.WithContext(ctx).Model(&models.IngestionState{}).
		Where("id = ?", stateID).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("ingestion-state %d existiert nicht", stateID)
	}
	s.Logger.Info("Ingestion-State umgeschaltet",
		zap.Uint("state_id", stateID),
		zap.Bool("is_active", active))
	return nil
}

// List liefert alle States, optional auf eine Datasource eingeschränkt.
func (s *IngestionStateService) List(ctx context.Context, datasourceName string) ([]models.IngestionState, error) {
	tx := s.DB.WithContext(ctx)
	query := tx.Model(&models.IngestionState{})
	if datasourceName != "" {
		datasourceID, err := s.datasourceRepo.GetUUIDByName(tx, datasourceName)
		if err != nil {
			return nil, err
		}
		if datasourceID == uuid.Nil {
			return nil, nil
		}
		query = query.Where("datasource_id = ?", datasourceID)
	}
	var states []models.IngestionState
	err := query.Order("id").Find(&states).Error
	return states, err
}
