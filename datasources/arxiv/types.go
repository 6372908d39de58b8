// Package arxiv enthält die Logik für die Interaktion mit der arXiv
// OAI-PMH Schnittstelle (ListSets für die Taxonomie, ListRecords für
// Paper-Metadaten im oai_dc-Format).
package arxiv

import (
	"encoding/xml"
	"time"
)

// DatasourceName ist der eindeutige Name dieser Quelle.
const DatasourceName = "arxiv"

// listSetsResponse repräsentiert die XML-Antwort auf verb=ListSets.
type listSetsResponse struct {
	XMLName xml.Name `xml:"OAI-PMH"`
	Sets    []oaiSet `xml:"ListSets>set"`
}

// oaiSet ist ein einzelner Taxonomie-Eintrag. Ein setSpec ohne ":" ist eine
// Domain, ein setSpec der Form "physics:hep-th" ein Subject darunter.
type oaiSet struct {
	Spec string `xml:"setSpec"`
	Name string `xml:"setName"`
}

// listRecordsResponse repräsentiert die XML-Antwort auf verb=ListRecords.
type listRecordsResponse struct {
	XMLName         xml.Name    `xml:"OAI-PMH"`
	Records         []oaiRecord `xml:"ListRecords>record"`
	ResumptionToken string      `xml:"ListRecords>resumptionToken"`
}

// oaiRecord ist ein einzelner Paper-Record in der ListRecords-Antwort.
type oaiRecord struct {
	Header   oaiHeader `xml:"header"`
	Metadata struct {
		DublinCore oaiDublinCore `xml:"dc"`
	} `xml:"metadata"`
}

// oaiHeader enthält den OAI-Identifier und die Set-Mitgliedschaften.
type oaiHeader struct {
	Identifier string   `xml:"identifier"`
	SetSpecs   []string `xml:"setSpec"`
}

// oaiDublinCore enthält die oai_dc-Metadatenfelder. Datumsfelder können
// mehrfach vorkommen (Revisionen), daher als Slice.
type oaiDublinCore struct {
	Titles       []string `xml:"title"`
	Creators     []string `xml:"creator"`
	Descriptions []string `xml:"description"`
	Dates        []string `xml:"date"`
}

// PaperRecord ist der native arXiv-Paper-Record, wie ihn der Parser aus einer
// Antwortseite extrahiert. Der Normalizer bildet ihn auf das kanonische
// Schema ab.
type PaperRecord struct {
	Abstract              string
	ArxivID               string
	Authors               []string
	DomainCode            string
	PrimarySubjectCode    string
	PublishDate           time.Time
	SecondarySubjectCodes []string
	Title                 string
}
