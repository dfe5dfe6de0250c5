package schema

import (
	"time"

	"github.com/mdblp/libreview-exporter/common"
)

const (
	ReadingTypeCurrent    = "current"
	ReadingTypeHistorical = "historical"
)

type (
	// ReadingDocument is one glucose reading as stored in mongo
	ReadingDocument struct {
		ExportID         string    `bson:"exportId"`
		PatientID        string    `bson:"patientId"`
		Type             string    `bson:"type"`
		Value            float64   `bson:"value"`
		Units            string    `bson:"units"`
		ValueMmolL       float64   `bson:"valueMmolL"`
		Trend            string    `bson:"trend,omitempty"`
		GraphIndex       string    `bson:"graphIndex,omitempty"`
		Time             time.Time `bson:"time"`
		CreatedTimestamp time.Time `bson:"createdTimestamp"`
	}
)

func newReadingDocument(exportID string, patientID string, readingType string, value Scalar, at time.Time, createdAt time.Time) (ReadingDocument, bool) {
	mgdl, ok := value.Float64()
	if !ok {
		return ReadingDocument{}, false
	}
	mmol, err := common.ConvertBG(mgdl, common.UnitMgdL)
	if err != nil {
		return ReadingDocument{}, false
	}
	return ReadingDocument{
		ExportID:         exportID,
		PatientID:        patientID,
		Type:             readingType,
		Value:            mgdl,
		Units:            common.UnitMgdL,
		ValueMmolL:       mmol,
		Time:             at,
		CreatedTimestamp: createdAt,
	}, true
}

// ReadingDocuments converts the current measurement and the history into documents.
// Readings without a usable value or timestamp are skipped, the number of
// skipped readings is returned alongside. Device timestamps are read in deviceLoc.
func (s *GlucoseSnapshot) ReadingDocuments(exportID string, createdAt time.Time, deviceLoc *time.Location) ([]ReadingDocument, int) {
	patientID := s.Connection.PatientID.String()
	docs := make([]ReadingDocument, 0, len(s.History)+1)
	skipped := 0
	if s.Current != nil {
		at, err := ReadingTime(s.Current.FactoryTimestamp, s.Current.Timestamp, deviceLoc)
		doc, ok := newReadingDocument(exportID, patientID, ReadingTypeCurrent, s.Current.ValueInMgPerDl, at, createdAt)
		if err == nil && ok {
			if !s.Current.TrendMessage.IsAbsent() {
				doc.Trend = s.Current.TrendMessage.String()
			}
			docs = append(docs, doc)
		} else {
			skipped++
		}
	}
	for _, reading := range s.History {
		at, err := ReadingTime(reading.FactoryTimestamp, reading.Timestamp, deviceLoc)
		doc, ok := newReadingDocument(exportID, patientID, ReadingTypeHistorical, reading.ValueInMgPerDl, at, createdAt)
		if err != nil || !ok {
			skipped++
			continue
		}
		if !reading.GraphIndex.IsAbsent() {
			doc.GraphIndex = reading.GraphIndex.String()
		}
		docs = append(docs, doc)
	}
	return docs, skipped
}
