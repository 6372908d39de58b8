package repository

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"paper-harvest/models"
)

// PaperRepository bündelt alle Zugriffe auf Papers und ihre Verknüpfungen.
type PaperRepository struct{}

// GetByTitle liefert das Paper mit dem gegebenen Titel, nil wenn es nicht
// existiert. Dient als Duplikatsprüfung vor dem Anlegen.
func (PaperRepository) GetByTitle(tx *gorm.DB, title string) (*models.Paper, error) {
	var paper models.Paper
	err := tx.Where("title = ?", title).First(&paper).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &paper, nil
}

// GetByPaperIdentifier liefert das Paper mit dem gegebenen natürlichen
// Schlüssel der Datasource, nil wenn es nicht existiert.
func (PaperRepository) GetByPaperIdentifier(tx *gorm.DB, paperIdentifier string) (*models.Paper, error) {
	var paper models.Paper
	err := tx.Where("paper_identifier = ?", paperIdentifier).First(&paper).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &paper, nil
}

// Create legt ein Paper an; bei verlorenem Wettlauf auf paper_identifier
// wird die vorhandene Zeile gelesen und created=false gemeldet.
func (r PaperRepository) Create(tx *gorm.DB, paper *models.Paper) (*models.Paper, bool, error) {
	if err := tx.Create(paper).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, gerr := r.GetByPaperIdentifier(tx, paper.PaperIdentifier)
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
	return paper, true, nil
}

// AddSubjects legt die PaperSubject-Zeilen eines Papers an.
func (PaperRepository) AddSubjects(tx *gorm.DB, paperSubjects []models.PaperSubject) error {
	if len(paperSubjects) == 0 {
		return nil
	}
	return tx.Create(&paperSubjects).Error
}

// AddAuthors legt die PaperAuthor-Zeilen eines Papers an.
func (PaperRepository) AddAuthors(tx *gorm.DB, paperAuthors []models.PaperAuthor) error {
	if len(paperAuthors) == 0 {
		return nil
	}
	return tx.Create(&paperAuthors).Error
}

// GetSubjects liefert die PaperSubject-Zeilen eines Papers.
func (PaperRepository) GetSubjects(tx *gorm.DB, paperID uuid.UUID) ([]models.PaperSubject, error) {
	var rows []models.PaperSubject
	err := tx.Where("paper_id = ?", paperID).Find(&rows).Error
	return rows, err
}

// CountByDatasource zählt die Papers einer Datasource.
func (PaperRepository) CountByDatasource(tx *gorm.DB, datasourceID uuid.UUID) (int64, error) {
	var count int64
	err := tx.Model(&models.Paper{}).Where("datasource_id = ?", datasourceID).Count(&count).Error
	return count, err
}
