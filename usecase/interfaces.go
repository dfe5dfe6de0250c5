package usecase

import (
	"bytes"
	"context"

	"github.com/mdblp/libreview-exporter/schema"
)

// Archiver keeps a copy of the finished csv export
type Archiver interface {
	Upload(ctx context.Context, filename string, buffer *bytes.Buffer) error
}

// ReadingRepository stores the exported glucose readings
type ReadingRepository interface {
	InsertReadings(ctx context.Context, readings []schema.ReadingDocument) error
}
