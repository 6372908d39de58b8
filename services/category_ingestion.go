package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"paper-harvest/datasources"
	"paper-harvest/models"
	"paper-harvest/repository"
)

// CategoryIngestionService schreibt Taxonomie-Einträge (Domains und Subjects)
// idempotent in die Datenbank. Jede Operation läuft in einer eigenen, kurzen
// Transaktion; Unique-Konflikte paralleler Läufe werden durch erneutes Lesen
// aufgelöst und nie nach außen gereicht.
type CategoryIngestionService struct {
	DB     *gorm.DB
	Logger *zap.Logger

	domains  repository.DomainRepository
	subjects repository.SubjectRepository
}

// NewCategoryIngestionService erstellt einen neuen CategoryIngestionService.
func NewCategoryIngestionService(db *gorm.DB, logger *zap.Logger) *CategoryIngestionService {
	return &CategoryIngestionService{DB: db, Logger: logger}
}

// IngestSubject legt ein Subject samt Domain an, falls noch nicht vorhanden.
// Ein zweiter Aufruf mit identischer Eingabe ist ein No-Op.
func (s *CategoryIngestionService) IngestSubject(ctx context.Context, datasourceID uuid.UUID, subject datasources.SubjectRecord) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		domain, err := s.resolveDomain(tx, datasourceID, subject.Domain)
		if err != nil {
			return err
		}

		existing, err := s.subjects.GetByCode(tx, subject.Code)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		_, created, err := s.subjects.Create(tx, &models.Subject{
			Code:     subject.Code,
			Name:     subject.Name,
			DomainID: domain.ID,
		})
		if err != nil {
			return err
		}
		if !created {
			s.Logger.Warn("Subject existiert bereits", zap.String("subject_code", subject.Code))
		}
		return nil
	})
}

// IngestSubjectsBatch ingestiert eine Liste von Subjects in einer Transaktion.
// Vorhandene Domains/Subjects werden vorab je mit einer Abfrage geladen, um
// einen Roundtrip pro Eintrag zu vermeiden. Wiederholt sich ein Code innerhalb
// des Batches, gewinnt der letzte Eintrag; angelegt wird jeder Code genau
// einmal.
func (s *CategoryIngestionService) IngestSubjectsBatch(ctx context.Context, datasourceID uuid.UUID, subjects []datasources.SubjectRecord) error {
	if len(subjects) == 0 {
		s.Logger.Info("Keine Subjects zum Ingestieren.")
		return nil
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		domainMap, err := s.batchDomains(tx, datasourceID, subjects)
		if err != nil {
			return err
		}
		return s.batchSubjects(tx, domainMap, subjects)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Ein paralleler Lauf hat Teile des Batches bereits angelegt; die
		// Einzel-Ingestion löst den Konflikt pro Eintrag auf.
		s.Logger.Warn("Batch-Ingestion kollidierte mit parallelem Lauf, wechsle auf Einzel-Ingestion",
			zap.Int("subjects", len(subjects)))
		for _, subject := range subjects {
			if ierr := s.IngestSubject(ctx, datasourceID, subject); ierr != nil {
				return ierr
			}
		}
		return nil
	}
	return err
}

// DeleteSubject entfernt ein Subject. Administrativer Pfad.
func (s *CategoryIngestionService) DeleteSubject(ctx context.Context, code string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subject, err := s.subjects.GetByCode(tx, code)
		if err != nil {
			return err
		}
		if subject == nil {
			s.Logger.Warn("Zu löschendes Subject existiert nicht", zap.String("subject_code", code))
			return nil
		}
		s.Logger.Info("Lösche Subject", zap.String("subject_code", code))
		return s.subjects.Delete(tx, subject)
	})
}

// DeleteSubjectAndDomain entfernt ein Subject und seine Domain.
// Administrativer Pfad.
func (s *CategoryIngestionService) DeleteSubjectAndDomain(ctx context.Context, datasourceID uuid.UUID, subject datasources.SubjectRecord) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.subjects.GetByCode(tx, subject.Code)
		if err != nil {
			return err
		}
		domain, err := s.domains.GetByCode(tx, subject.Domain.Code, datasourceID)
		if err != nil {
			return err
		}
		s.Logger.Info("Lösche Subject und Domain",
			zap.String("subject_code", subject.Code),
			zap.String("domain_code", subject.Domain.Code))
		if existing != nil {
			if err := s.subjects.Delete(tx, existing); err != nil {
				return err
			}
		}
		if domain != nil {
			if err := s.domains.Delete(tx, domain); err != nil {
				return err
			}
		}
		return nil
	})
}

// resolveDomain liest die Domain eines Subjects oder legt sie an. Gewinnt ein
// paralleler Schreiber den Wettlauf, wird dessen Zeile verwendet.
func (s *CategoryIngestionService) resolveDomain(tx *gorm.DB, datasourceID uuid.UUID, record datasources.DomainRecord) (*models.Domain, error) {
	domain, err := s.domains.GetByCode(tx, record.Code, datasourceID)
	if err != nil {
		return nil, err
	}
	if domain != nil {
		return domain, nil
	}

	domain, created, err := s.domains.Create(tx, &models.Domain{
		Code:         record.Code,
		Name:         record.Name,
		DatasourceID: datasourceID,
	})
	if err != nil {
		return nil, err
	}
	if !created {
		s.Logger.Warn("Domain existiert bereits, nutze vorhandene Zeile",
			zap.String("domain_code", record.Code))
	}
	return domain, nil
}

func (s *CategoryIngestionService) batchDomains(tx *gorm.DB, datasourceID uuid.UUID, subjects []datasources.SubjectRecord) (map[string]*models.Domain, error) {
	codes := make([]string, 0, len(subjects))
	seen := make(map[string]bool)
	for _, subject := range subjects {
		if !seen[subject.Domain.Code] {
			seen[subject.Domain.Code] = true
			codes = append(codes, subject.Domain.Code)
		}
	}

	existing, err := s.domains.GetByCodes(tx, codes, datasourceID)
	if err != nil {
		return nil, err
	}
	domainMap := make(map[string]*models.Domain, len(existing))
	for i := range existing {
		domainMap[existing[i].Code] = &existing[i]
	}

	var pending []*models.Domain
	for _, subject := range subjects {
		code := subject.Domain.Code
		if domain, ok := domainMap[code]; ok {
			if domain.ID == uuid.Nil {
				// Noch nicht angelegte Zeile: letzter Eintrag pro Code gewinnt.
				domain.Name = subject.Domain.Name
			}
			continue
		}
		domain := &models.Domain{
			Code:         code,
			Name:         subject.Domain.Name,
			DatasourceID: datasourceID,
		}
		pending = append(pending, domain)
		domainMap[code] = domain
	}

	if err := s.domains.CreateMany(tx, pending); err != nil {
		return nil, err
	}
	return domainMap, nil
}

func (s *CategoryIngestionService) batchSubjects(tx *gorm.DB, domainMap map[string]*models.Domain, subjects []datasources.SubjectRecord) error {
	codes := make([]string, 0, len(subjects))
	seen := make(map[string]bool)
	for _, subject := range subjects {
		if !seen[subject.Code] {
			seen[subject.Code] = true
			codes = append(codes, subject.Code)
		}
	}

	existing, err := s.subjects.GetByCodes(tx, codes)
	if err != nil {
		return err
	}
	subjectMap := make(map[string]*models.Subject, len(existing))
	for i := range existing {
		subjectMap[existing[i].Code] = &existing[i]
	}

	var pending []*models.Subject
	for _, record := range subjects {
		if subject, ok := subjectMap[record.Code]; ok {
			if subject.ID == uuid.Nil {
				subject.Name = record.Name
				if domain, ok := domainMap[record.Domain.Code]; ok {
					subject.DomainID = domain.ID
				}
			}
			continue
		}
		domain, ok := domainMap[record.Domain.Code]
		if !ok {
			s.Logger.Warn("Subject ohne aufgelöste Domain wird übersprungen",
				zap.String("subject_code", record.Code),
				zap.String("domain_code", record.Domain.Code))
			continue
		}
		subject := &models.Subject{
			Code:     record.Code,
			Name:     record.Name,
			DomainID: domain.ID,
		}
		pending = append(pending, subject)
		subjectMap[record.Code] = subject
	}

	return s.subjects.CreateMany(tx, pending)
}
