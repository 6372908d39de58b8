package repository

import (
	"errors"

	"gorm.io/gorm"

	"paper-harvest/models"
)

// AuthorRepository bündelt alle Zugriffe auf Autoren.
type AuthorRepository struct{}

// GetByName liefert den Autor mit dem gegebenen Namen, nil wenn er nicht
// existiert.
func (AuthorRepository) GetByName(tx *gorm.DB, name string) (*models.Author, error) {
	var author models.Author
	err := tx.Where("name = ?", name).First(&author).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &author, nil
}

// GetByNames liefert alle Autoren mit einem der Namen.
func (AuthorRepository) GetByNames(tx *gorm.DB, names []string) ([]models.Author, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var authors []models.Author
	err := tx.Where("name IN ?", names).Find(&authors).Error
	return authors, err
}

// Create legt einen Autor an; bei verlorenem Wettlauf wird die vorhandene
// Zeile gelesen und created=false gemeldet.
func (r AuthorRepository) Create(tx *gorm.DB, author *models.Author) (*models.Author, bool, error) {
	if err := tx.Create(author).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, gerr := r.GetByName(tx, author.Name)
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
	return author, true, nil
}
