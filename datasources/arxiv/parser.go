package arxiv

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/araddon/dateparse"
	"go.uber.org/zap"
)

// Parser dekodiert rohe ListRecords-Antwortseiten in native Paper-Records.
// Reine Funktion ohne I/O; ein fehlerhafter Record bricht die Seite nicht ab.
type Parser struct {
	Logger *zap.Logger
}

// NewParser erstellt einen neuen Parser.
func NewParser(logger *zap.Logger) *Parser {
	return &Parser{Logger: logger}
}

// Parse extrahiert alle dekodierbaren Records einer Antwortseite. Fehlerhafte
// Einzel-Records werden geloggt und übersprungen; eine insgesamt
// unparsbare Seite liefert null Records (beendet die Pagination aber nicht).
func (p *Parser) Parse(raw []byte, primarySubjectCode, domainCode string) []PaperRecord {
	var doc listRecordsResponse
	if err := xml.Unmarshal(raw, &doc); err != nil {
		p.Logger.Error("Antwortseite konnte nicht als XML dekodiert werden", zap.Error(err))
		return nil
	}

	records := make([]PaperRecord, 0, len(doc.Records))
	for _, el := range doc.Records {
		record, err := p.parseRecord(el, primarySubjectCode, domainCode)
		if err != nil {
			p.Logger.Error("Parsen eines arXiv-Records fehlgeschlagen",
				zap.String("identifier", el.Header.Identifier),
				zap.Error(err))
			continue
		}
		records = append(records, record)
	}
	return records
}

// ResumptionToken extrahiert das Fortsetzungs-Token einer Antwortseite.
// Leerer String bedeutet: keine weitere Seite.
func (p *Parser) ResumptionToken(raw []byte) string {
	var doc listRecordsResponse
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return ""
	}
	return strings.TrimSpace(doc.ResumptionToken)
}

func (p *Parser) parseRecord(el oaiRecord, primarySubjectCode, domainCode string) (PaperRecord, error) {
	arxivID := parseIdentifier(el.Header.Identifier)
	if arxivID == "" {
		return PaperRecord{}, fmt.Errorf("record ohne identifier")
	}

	dc := el.Metadata.DublinCore
	if len(dc.Titles) == 0 || strings.TrimSpace(dc.Titles[0]) == "" {
		return PaperRecord{}, fmt.Errorf("record %s ohne titel", arxivID)
	}
	if len(dc.Creators) == 0 {
		return PaperRecord{}, fmt.Errorf("record %s ohne autoren", arxivID)
	}
	if len(dc.Dates) == 0 {
		return PaperRecord{}, fmt.Errorf("record %s ohne datum", arxivID)
	}

	// Der Feed wiederholt dc:date pro Revision; der letzte Wert gewinnt.
	rawDate := strings.TrimSpace(dc.Dates[len(dc.Dates)-1])
	publishDate, err := dateparse.ParseAny(rawDate)
	if err != nil {
		return PaperRecord{}, fmt.Errorf("record %s mit unlesbarem datum %q: %w", arxivID, rawDate, err)
	}

	authors := make([]string, 0, len(dc.Creators))
	for _, creator := range dc.Creators {
		name := strings.TrimSpace(creator)
		if name != "" {
			authors = append(authors, name)
		}
	}
	if len(authors) == 0 {
		return PaperRecord{}, fmt.Errorf("record %s ohne autoren", arxivID)
	}

	var abstract string
	if len(dc.Descriptions) > 0 {
		abstract = strings.TrimSpace(dc.Descriptions[0])
	}
	if abstract == "" {
		return PaperRecord{}, fmt.Errorf("record %s ohne abstract", arxivID)
	}

	return PaperRecord{
		Abstract:              abstract,
		ArxivID:               arxivID,
		Authors:               authors,
		DomainCode:            domainCode,
		PrimarySubjectCode:    primarySubjectCode,
		PublishDate:           publishDate,
		SecondarySubjectCodes: secondarySubjects(el.Header.SetSpecs, primarySubjectCode),
		Title:                 strings.TrimSpace(dc.Titles[0]),
	}, nil
}

// parseIdentifier reduziert einen OAI-Identifier wie "oai:arXiv.org:2201.00001"
// auf die nackte arXiv-ID.
func parseIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return ""
	}
	idx := strings.LastIndex(identifier, ":")
	if idx < 0 {
		return identifier
	}
	return identifier[idx+1:]
}

// secondarySubjects liefert alle Set-Mitgliedschaften des Records außer dem
// Primär-Subject der Abfrage.
func secondarySubjects(setSpecs []string, primarySubjectCode string) []string {
	var subjects []string
	for _, spec := range setSpecs {
		code := strings.ToLower(strings.TrimSpace(spec))
		if code != "" && code != primarySubjectCode {
			subjects = append(subjects, code)
		}
	}
	return subjects
}
