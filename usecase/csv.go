package usecase

import (
	"encoding/csv"
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/mdblp/libreview-exporter/common"
	"github.com/mdblp/libreview-exporter/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RecordKind selects the row schema of a csv append
type RecordKind int

const (
	ConnectionRecord RecordKind = iota
	CurrentGlucoseRecord
	HistoricalGlucoseRecord
	SensorInfoRecord
)

var (
	errorCsvOpen  = common.DetailedError{Kind: common.PersistenceError, Code: "csv_open", Message: "cannot open the csv file"}
	errorCsvWrite = common.DetailedError{Kind: common.PersistenceError, Code: "csv_write", Message: "cannot write the csv file"}
)

var csvRowsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
	Name:      "csv_rows_written_total",
	Help:      "Number of rows appended to the csv export",
	Subsystem: "exporter",
	Namespace: "libreview",
}, []string{"kind"})

var csvHeaders = map[RecordKind][]string{
	ConnectionRecord: {
		"Timestamp", "Data Type", "Patient ID", "First Name", "Last Name",
		"Status", "Gender", "Date of Birth", "Target Low", "Target High",
	},
	CurrentGlucoseRecord: {
		"Timestamp", "Data Type", "Patient ID", "Glucose Value (mg/dL)",
		"Trend", "Measurement Time", "Status", "Is High", "Is Low",
	},
	HistoricalGlucoseRecord: {
		"Timestamp", "Data Type", "Patient ID", "Glucose Value (mg/dL)",
		"Measurement Time", "Graph Index",
	},
	SensorInfoRecord: {
		"Timestamp", "Data Type", "Patient ID", "Device ID",
		"Serial Number", "Sensor State", "Sensor Age",
	},
}

// DataType is the text of the "Data Type" column
func (k RecordKind) DataType() string {
	switch k {
	case ConnectionRecord:
		return "Connection"
	case CurrentGlucoseRecord:
		return "Current Glucose"
	case HistoricalGlucoseRecord:
		return "Historical Glucose"
	case SensorInfoRecord:
		return "Sensor Info"
	}
	return "Unknown"
}

func (k RecordKind) Header() []string {
	return csvHeaders[k]
}

// ExportPayload is what a csv append is derived from. Connection rows use
// Connections, the other kinds use Snapshot.
type ExportPayload struct {
	Connections []schema.Connection
	Snapshot    *schema.GlucoseSnapshot
}

// rows returns the record columns, without the two leading ones
func (k RecordKind) rows(payload ExportPayload) [][]string {
	rows := [][]string{}
	if k == ConnectionRecord {
		for _, c := range payload.Connections {
			rows = append(rows, []string{
				c.PatientID.String(), c.FirstName.String(), c.LastName.String(), c.Status.String(),
				c.Gender.String(), c.DateOfBirth.String(), c.TargetLow.String(), c.TargetHigh.String(),
			})
		}
		return rows
	}

	snapshot := payload.Snapshot
	if snapshot == nil {
		return rows
	}
	patientID := snapshot.Connection.PatientID.String()
	switch k {
	case CurrentGlucoseRecord:
		if m := snapshot.Current; m != nil {
			rows = append(rows, []string{
				patientID, m.ValueInMgPerDl.String(), m.TrendMessage.String(), m.Timestamp.String(),
				m.Status(), strconv.FormatBool(m.High()), strconv.FormatBool(m.Low()),
			})
		}
	case HistoricalGlucoseRecord:
		for _, r := range snapshot.History {
			rows = append(rows, []string{
				patientID, r.ValueInMgPerDl.String(), r.Timestamp.String(), r.GraphIndex.String(),
			})
		}
	case SensorInfoRecord:
		if s := snapshot.Sensor; s != nil {
			rows = append(rows, []string{
				patientID, s.DeviceID.String(), s.SerialNumber.String(), s.SensorState.String(), s.SensorAge.String(),
			})
		}
	}
	return rows
}

// CsvWriter appends records to a csv file. The file is opened and closed on each
// append, no lock is taken.
type CsvWriter struct {
	logger *log.Logger
	now    func() time.Time
}

func NewCsvWriter(logger *log.Logger) *CsvWriter {
	return &CsvWriter{
		logger: logger,
		now:    time.Now,
	}
}

// Append writes the header of kind when the file does not exist yet, then one row
// per item of the payload. It returns the number of rows appended, header excluded.
func (w *CsvWriter) Append(path string, kind RecordKind, payload ExportPayload) (int, *common.DetailedError) {
	rows := kind.rows(payload)

	_, statErr := os.Stat(path)
	fileExists := !errors.Is(statErr, os.ErrNotExist)

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		detailedErr := errorCsvOpen.SetInternalMessage(err)
		return 0, &detailedErr
	}

	writer := csv.NewWriter(file)
	if !fileExists {
		err = writer.Write(kind.Header())
	}
	for i := 0; i < len(rows) && err == nil; i++ {
		record := append([]string{w.now().Format(schema.CsvTimestampLayout), kind.DataType()}, rows[i]...)
		err = writer.Write(record)
	}
	writer.Flush()
	if err == nil {
		err = writer.Error()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		detailedErr := errorCsvWrite.SetInternalMessage(err)
		return 0, &detailedErr
	}

	csvRowsWritten.WithLabelValues(kind.DataType()).Add(float64(len(rows)))
	w.logger.Printf("%d %s row(s) saved to %s", len(rows), kind.DataType(), path)
	return len(rows), nil
}
