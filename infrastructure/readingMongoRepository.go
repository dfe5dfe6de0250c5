package infrastructure

import (
	"context"
	"fmt"
	"log"

	"github.com/mdblp/libreview-exporter/schema"
	goComMgo "github.com/tidepool-org/go-common/clients/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	readingsCollectionName = "glucoseReadings"
	idxPatientIDTime       = "PatientIdTime"
	idxExportID            = "ExportId"
)

var readingIndexes = map[string][]mongo.IndexModel{
	readingsCollectionName: {
		{
			Keys:    bson.D{{Key: "patientId", Value: 1}, {Key: "time", Value: -1}},
			Options: options.Index().SetName(idxPatientIDTime),
		},
		{
			Keys:    bson.D{{Key: "exportId", Value: 1}},
			Options: options.Index().SetName(idxExportID),
		},
	},
}

type ReadingMongoRepository struct {
	*goComMgo.StoreClient
}

// NewReadingMongoRepository creates a new glucose readings repository for mongo
func NewReadingMongoRepository(config *goComMgo.Config, logger *log.Logger) (*ReadingMongoRepository, error) {
	if config != nil {
		config.Indexes = readingIndexes
	}
	repository := ReadingMongoRepository{}
	store, err := goComMgo.NewStoreClient(config, logger)
	repository.StoreClient = store
	return &repository, err
}

func readingsCollection(r *ReadingMongoRepository) *mongo.Collection {
	return r.Collection(readingsCollectionName)
}

// InsertReadings inserts all the readings, an invalid one does not prevent the others
func (r *ReadingMongoRepository) InsertReadings(ctx context.Context, readings []schema.ReadingDocument) error {
	if len(readings) == 0 {
		return nil
	}
	docs := make([]interface{}, len(readings))
	for i := range readings {
		docs[i] = readings[i]
	}
	if _, err := readingsCollection(r).InsertMany(ctx, docs, options.InsertMany().SetOrdered(false)); err != nil {
		return fmt.Errorf("insert of %d readings failed: %w", len(readings), err)
	}
	return nil
}
