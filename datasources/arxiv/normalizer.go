package arxiv

import "paper-harvest/datasources"

// Normalizer bildet native arXiv-Records 1:1 auf das kanonische Schema ab.
// Keine Filterung, kein I/O.
type Normalizer struct{}

// Normalize wandelt einen nativen Record in einen PaperMetadataRecord um.
func (Normalizer) Normalize(record PaperRecord) datasources.PaperMetadataRecord {
	return datasources.PaperMetadataRecord{
		Abstract:              record.Abstract,
		Authors:               record.Authors,
		DomainCode:            record.DomainCode,
		PaperID:               record.ArxivID,
		PrimarySubjectCode:    record.PrimarySubjectCode,
		PublishDate:           record.PublishDate,
		SecondarySubjectCodes: record.SecondarySubjectCodes,
		Source:                DatasourceName,
		Title:                 record.Title,
	}
}
