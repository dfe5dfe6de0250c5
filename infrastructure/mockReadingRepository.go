package infrastructure

import (
	"context"
	"errors"

	"github.com/mdblp/libreview-exporter/schema"
)

// MockReadingRepository use for unit tests
type MockReadingRepository struct {
	InsertError bool
	Readings    []schema.ReadingDocument
	NumInserts  int
}

func NewMockReadingRepository() *MockReadingRepository {
	return &MockReadingRepository{}
}

func (c *MockReadingRepository) EnableInsertError() {
	c.InsertError = true
}

func (c *MockReadingRepository) InsertReadings(ctx context.Context, readings []schema.ReadingDocument) error {
	c.NumInserts++
	if c.InsertError {
		return errors.New("Mock Insert Error")
	}
	c.Readings = append(c.Readings, readings...)
	return nil
}
