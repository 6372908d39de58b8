// Package repository bündelt alle Datenbank-Zugriffe als schmale Funktionen
// auf expliziten Transaktions-Handles. Creates auf eindeutig beschränkten
// Entitäten melden einen verlorenen Schreib-Wettlauf nicht als Fehler,
// sondern liefern die bereits vorhandene Zeile mit created=false zurück.
package repository

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"paper-harvest/models"
)

// DatasourceRepository bündelt alle Zugriffe auf Datasources.
type DatasourceRepository struct{}

// GetUUIDByName liefert die UUID der Datasource mit dem gegebenen Namen,
// uuid.Nil wenn sie nicht existiert.
func (DatasourceRepository) GetUUIDByName(tx *gorm.DB, name string) (uuid.UUID, error) {
	var ds models.Datasource
	err := tx.Where("name = ?", name).First(&ds).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, err
	}
	return ds.ID, nil
}

// Create legt eine Datasource an. Hat ein paralleler Lauf sie bereits
// angelegt, wird die vorhandene Zeile gelesen und created=false gemeldet.
func (r DatasourceRepository) Create(tx *gorm.DB, ds *models.Datasource) (*models.Datasource, bool, error) {
	if err := tx.Create(ds).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing models.Datasource
			if gerr := tx.Where("name = ?", ds.Name).First(&existing).Error; gerr != nil {
				return nil, false, gerr
			}
			return &existing, false, nil
		}
		return nil, false, err
	}
	return ds, true, nil
}
