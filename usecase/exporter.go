package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mdblp/libreview-exporter/auth"
	"github.com/mdblp/libreview-exporter/client/libreview"
	"github.com/mdblp/libreview-exporter/common"
	"github.com/mdblp/libreview-exporter/schema"
)

// Number of historical readings narrated in the log
const latestReadingsShown = 3

var (
	errorConnections   = common.DetailedError{Kind: common.ProtocolError, Code: "connections_failed", Message: "cannot list the sensor connections"}
	errorNoConnection  = common.DetailedError{Kind: common.ProtocolError, Code: "no_connection", Message: "no sensor connections found"}
	errorNoPatientID   = common.DetailedError{Kind: common.ProtocolError, Code: "missing_patient_id", Message: "the first connection has no patient id"}
	errorGraph         = common.DetailedError{Kind: common.ProtocolError, Code: "graph_failed", Message: "cannot get the glucose data"}
	errorArchive       = common.DetailedError{Kind: common.PersistenceError, Code: "archive_failed", Message: "cannot archive the csv file"}
	errorStoreReadings = common.DetailedError{Kind: common.PersistenceError, Code: "store_failed", Message: "cannot store the glucose readings"}
)

type (
	// SessionConfig is used to open a new libreview session on each export
	SessionConfig struct {
		BaseURL string
		Product string
		Version string
	}

	ExportArgs struct {
		Email    string
		Password string
		// CsvPath is the file the records are appended to, no csv is written when empty
		CsvPath string
		// ResetFile removes CsvPath before anything else
		ResetFile bool
		// DeviceLocation is the zone of the reader's timestamps, the local zone when nil
		DeviceLocation *time.Location
	}

	// ExportResult tells whether the data could be retrieved. Persistence problems
	// only show up in Messages.
	ExportResult struct {
		Success   bool
		RunID     string
		PatientID string
		// Connections is the full list, only the first one is exported
		Connections []schema.Connection
		Snapshot    *schema.GlucoseSnapshot
		Messages    []string
	}

	Exporter struct {
		logger        *log.Logger
		client        libreview.ClientInterface
		csvWriter     *CsvWriter
		archiver      Archiver
		repository    ReadingRepository
		sessionConfig SessionConfig
	}
)

// NewExporter creates the exporter; archiver and repository may be nil
func NewExporter(logger *log.Logger, client libreview.ClientInterface, csvWriter *CsvWriter, archiver Archiver, repository ReadingRepository, sessionConfig SessionConfig) Exporter {
	return Exporter{
		logger:        logger,
		client:        client,
		csvWriter:     csvWriter,
		archiver:      archiver,
		repository:    repository,
		sessionConfig: sessionConfig,
	}
}

func (e Exporter) report(result *ExportResult, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	result.Messages = append(result.Messages, message)
	e.logger.Printf("[%s] %s", result.RunID, message)
}

// note records a message the caller already logged
func (e Exporter) note(result *ExportResult, format string, args ...interface{}) {
	result.Messages = append(result.Messages, fmt.Sprintf(format, args...))
}

func (e Exporter) fail(result *ExportResult, step string, err *common.DetailedError) ExportResult {
	err.ID = result.RunID
	e.report(result, "%s failed: %v", step, err)
	result.Success = false
	return *result
}

// ListConnections returns the connections of the account, possibly none
func (e Exporter) ListConnections(ctx context.Context, session *libreview.Session) ([]schema.Connection, *common.DetailedError) {
	res, err := e.client.GetConnections(ctx, session)
	if err != nil {
		return nil, err
	}
	if res.Status == nil {
		detailedErr := errorConnections
		return nil, &detailedErr
	}
	if *res.Status != libreview.StatusOK {
		detailedErr := errorConnections.WithAPIStatus(*res.Status)
		return nil, &detailedErr
	}
	if res.Data == nil {
		return []schema.Connection{}, nil
	}
	return res.Data, nil
}

// GetGlucoseGraph returns the current and historical readings of one connection
func (e Exporter) GetGlucoseGraph(ctx context.Context, session *libreview.Session, patientID string) (*schema.GlucoseSnapshot, *common.DetailedError) {
	res, err := e.client.GetGraph(ctx, session, patientID)
	if err != nil {
		return nil, err
	}
	if res.Status == nil {
		detailedErr := errorGraph
		return nil, &detailedErr
	}
	if *res.Status != libreview.StatusOK {
		detailedErr := errorGraph.WithAPIStatus(*res.Status)
		return nil, &detailedErr
	}
	return schema.NewGlucoseSnapshot(res.Data), nil
}

// AppendCsv appends one record kind; a failure is reported as a warning only
func (e Exporter) AppendCsv(result *ExportResult, path string, kind RecordKind, payload ExportPayload) {
	count, err := e.csvWriter.Append(path, kind, payload)
	if err != nil {
		err.ID = result.RunID
		e.report(result, "warning: %s csv write failed: %v", kind.DataType(), err)
		return
	}
	// the csv writer logs the append itself
	e.note(result, "%d %s row(s) saved to %s", count, kind.DataType(), path)
}

func (e Exporter) resetFile(result *ExportResult, path string) {
	err := os.Remove(path)
	switch {
	case err == nil:
		e.report(result, "previous csv file removed: %s", path)
	case errors.Is(err, os.ErrNotExist):
	default:
		e.report(result, "warning: cannot remove %s: %v", path, err)
	}
}

func (e Exporter) narrateConnections(result *ExportResult, connections []schema.Connection) {
	e.report(result, "found %d sensor connection(s)", len(connections))
	for i, c := range connections {
		e.logger.Printf("[%s] sensor %d: patient %s, %s %s, status %s", result.RunID, i+1, c.PatientID, c.FirstName, c.LastName, c.Status)
	}
}

func (e Exporter) narrateSnapshot(result *ExportResult, snapshot *schema.GlucoseSnapshot) {
	if m := snapshot.Current; m != nil {
		e.logger.Printf("[%s] current glucose: %s mg/dL, trend %s, at %s, status %s", result.RunID, m.ValueInMgPerDl, m.TrendMessage, m.Timestamp, m.Status())
	} else {
		e.logger.Printf("[%s] no current glucose measurement", result.RunID)
	}
	if s := snapshot.Sensor; s != nil {
		e.logger.Printf("[%s] sensor: device %s, serial number %s", result.RunID, s.DeviceID, s.SerialNumber)
	}
	e.report(result, "%d historical reading(s) available", len(snapshot.History))
	for i, r := range snapshot.LatestReadings(latestReadingsShown) {
		e.logger.Printf("[%s] latest %d: %s mg/dL at %s", result.RunID, i+1, r.ValueInMgPerDl, r.Timestamp)
	}
}

func (e Exporter) storeReadings(ctx context.Context, result *ExportResult, snapshot *schema.GlucoseSnapshot, deviceLoc *time.Location) {
	if deviceLoc == nil {
		deviceLoc = time.Local
	}
	docs, skipped := snapshot.ReadingDocuments(result.RunID, time.Now().UTC(), deviceLoc)
	if skipped > 0 {
		e.report(result, "%d reading(s) without value or timestamp not stored", skipped)
	}
	if len(docs) == 0 {
		return
	}
	if err := e.repository.InsertReadings(ctx, docs); err != nil {
		detailedErr := errorStoreReadings.SetInternalMessage(err)
		detailedErr.ID = result.RunID
		e.report(result, "warning: %v", &detailedErr)
		return
	}
	e.report(result, "%d reading(s) stored", len(docs))
}

func (e Exporter) archiveCsv(ctx context.Context, result *ExportResult, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		detailedErr := errorArchive.SetInternalMessage(err)
		detailedErr.ID = result.RunID
		e.report(result, "warning: %v", &detailedErr)
		return
	}
	filename := fmt.Sprintf("%s_%s.csv", result.PatientID, time.Now().UTC().Format("20060102T150405Z"))
	if err := e.archiver.Upload(ctx, filename, bytes.NewBuffer(content)); err != nil {
		detailedErr := errorArchive.SetInternalMessage(err)
		detailedErr.ID = result.RunID
		e.report(result, "warning: %v", &detailedErr)
		return
	}
	e.report(result, "csv file archived as %s", filename)
}

// ExportSensorData authenticates, fetches the glucose data of the first connection
// and appends it to the csv file. Success only depends on the retrieval steps.
func (e Exporter) ExportSensorData(ctx context.Context, args ExportArgs) ExportResult {
	result := ExportResult{RunID: uuid.New().String()}
	ctx = common.TimeItContext(ctx, e.logger)
	e.logger.Printf("[%s] starting libreview sensor data retrieval", result.RunID)

	if args.ResetFile && args.CsvPath != "" {
		e.resetFile(&result, args.CsvPath)
	}

	session := libreview.NewSession(e.sessionConfig.BaseURL, e.sessionConfig.Product, e.sessionConfig.Version)
	authSession := auth.NewAuthSession(e.logger, e.client, session)
	common.TimeIt(ctx, "auth")
	if _, err := authSession.RunAuthFlow(ctx, args.Email, args.Password); err != nil {
		return e.fail(&result, "authentication", err)
	}
	common.TimeEnd(ctx, "auth")

	common.TimeIt(ctx, "connections")
	connections, err := e.ListConnections(ctx, session)
	if err != nil {
		return e.fail(&result, "connections retrieval", err)
	}
	common.TimeEnd(ctx, "connections")
	result.Connections = connections
	e.narrateConnections(&result, connections)
	if len(connections) == 0 {
		detailedErr := errorNoConnection
		return e.fail(&result, "connections retrieval", &detailedErr)
	}
	if connections[0].PatientID.IsAbsent() {
		detailedErr := errorNoPatientID
		return e.fail(&result, "connections retrieval", &detailedErr)
	}
	result.PatientID = connections[0].PatientID.String()

	common.TimeIt(ctx, "graph")
	snapshot, err := e.GetGlucoseGraph(ctx, session, result.PatientID)
	if err != nil {
		return e.fail(&result, "glucose data retrieval", err)
	}
	common.TimeEnd(ctx, "graph")
	result.Snapshot = snapshot
	e.narrateSnapshot(&result, snapshot)

	if args.CsvPath != "" {
		e.AppendCsv(&result, args.CsvPath, ConnectionRecord, ExportPayload{Connections: connections})
		for _, kind := range []RecordKind{CurrentGlucoseRecord, HistoricalGlucoseRecord, SensorInfoRecord} {
			e.AppendCsv(&result, args.CsvPath, kind, ExportPayload{Snapshot: snapshot})
		}
	}
	if e.repository != nil {
		e.storeReadings(ctx, &result, snapshot, args.DeviceLocation)
	}
	if e.archiver != nil && args.CsvPath != "" {
		e.archiveCsv(ctx, &result, args.CsvPath)
	}

	result.Success = true
	e.report(&result, "sensor data retrieval completed successfully")
	e.logger.Printf("[%s] timings %s", result.RunID, common.TimeResults(ctx))
	return result
}
