package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mdblp/libreview-exporter/client/libreview"
	"github.com/mdblp/libreview-exporter/infrastructure"
	"github.com/mdblp/libreview-exporter/usecase"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/tidepool-org/go-common"
	"github.com/tidepool-org/go-common/clients/mongo"
)

const logPrefix = "libreview-exporter "

type (
	// LibreViewConfig holds the remote api settings
	LibreViewConfig struct {
		BaseURL        string `json:"baseUrl"`
		Product        string `json:"product"`
		Version        string `json:"version"`
		TimeoutSeconds int    `json:"timeoutSeconds"`
	}

	// ExporterConfig holds the configuration for the `libreview-exporter` tool
	ExporterConfig struct {
		LibreView LibreViewConfig `json:"libreview"`
		CsvPath   string          `json:"csvPath"`
		ResetFile bool            `json:"resetFile"`
		Mongo     mongo.Config    `json:"mongo"`
	}
)

func main() {
	os.Exit(run())
}

func run() int {
	exporterConfig := ExporterConfig{
		LibreView: LibreViewConfig{
			BaseURL:        libreview.DefaultBaseURL,
			Product:        libreview.DefaultProduct,
			Version:        libreview.DefaultVersion,
			TimeoutSeconds: int(libreview.DefaultTimeout / time.Second),
		},
		CsvPath: "libreview_data.csv",
	}
	logger := log.New(os.Stdout, logPrefix, log.LstdFlags|log.Lshortfile)

	if err := common.LoadEnvironmentConfig(
		[]string{"LIBREVIEW_EXPORTER_SERVICE", "LIBREVIEW_EXPORTER_ENV"},
		&exporterConfig,
	); err != nil {
		logger.Println("Problem loading config: ", err)
		return 1
	}

	email := flag.String("email", os.Getenv("LIBREVIEW_EMAIL"), "LibreView account email")
	password := flag.String("password", os.Getenv("LIBREVIEW_PASSWORD"), "LibreView account password")
	csvPath := flag.String("csv", exporterConfig.CsvPath, "csv file the readings are appended to, empty to skip")
	resetFile := flag.Bool("reset", exporterConfig.ResetFile, "remove the csv file before exporting")
	timeout := flag.Duration("timeout", time.Duration(exporterConfig.LibreView.TimeoutSeconds)*time.Second, "timeout of each LibreView call")
	flag.Parse()

	if *email == "" || *password == "" {
		logger.Println("LibreView credentials are missing, use -email/-password or LIBREVIEW_EMAIL/LIBREVIEW_PASSWORD")
		return 1
	}

	deviceLocation := time.Local
	if zone := os.Getenv("DEVICE_TIMEZONE"); zone != "" {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			logger.Println("Invalid DEVICE_TIMEZONE: ", err)
			return 1
		}
		deviceLocation = loc
	}

	ctx := context.Background()

	var archiver usecase.Archiver
	if bucketName := os.Getenv("BUCKET_NAME"); bucketName != "" {
		uploader, err := newS3Uploader(ctx, logger, bucketName)
		if err != nil {
			logger.Println("Cannot configure the s3 archive: ", err)
			return 1
		}
		archiver = uploader
	}

	var repository usecase.ReadingRepository
	storeReadings, err := strconv.ParseBool(os.Getenv("STORE_READINGS"))
	if err == nil && storeReadings {
		logger.Print("environment variable STORE_READINGS exported, readings are stored in mongo")
		exporterConfig.Mongo.FromEnv()
		readingRepository, err := infrastructure.NewReadingMongoRepository(&exporterConfig.Mongo, logger)
		if err != nil {
			logger.Println("Cannot configure the readings store: ", err)
			return 1
		}
		defer readingRepository.Close()
		readingRepository.Start()
		readingRepository.WaitUntilStarted()
		repository = readingRepository
	}

	client := libreview.NewClient(logger, *timeout)
	exporter := usecase.NewExporter(logger, client, usecase.NewCsvWriter(logger), archiver, repository, usecase.SessionConfig{
		BaseURL: exporterConfig.LibreView.BaseURL,
		Product: exporterConfig.LibreView.Product,
		Version: exporterConfig.LibreView.Version,
	})

	result := exporter.ExportSensorData(ctx, usecase.ExportArgs{
		Email:          *email,
		Password:       *password,
		CsvPath:        *csvPath,
		ResetFile:      *resetFile,
		DeviceLocation: deviceLocation,
	})

	if pushURL := os.Getenv("PUSHGATEWAY_URL"); pushURL != "" {
		if err := push.New(pushURL, "libreview_exporter").Gatherer(prometheus.DefaultGatherer).Push(); err != nil {
			logger.Println("warning: cannot push the run metrics: ", err)
		}
	}

	if !result.Success {
		logger.Printf("[%s] sensor data retrieval failed", result.RunID)
		return 1
	}
	return 0
}

func newS3Uploader(ctx context.Context, logger *log.Logger, bucketName string) (infrastructure.S3Uploader, error) {
	region := os.Getenv("REGION")
	if region == "" {
		region = "eu-west-1"
		logger.Println("Using default aws region: ", region)
	}

	url := os.Getenv("S3_ENDPOINT_URL")
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if url != "" {
			logger.Println("Using custom s3 endpoint: ", url)
			return aws.Endpoint{
				PartitionID:       "aws",
				URL:               url,
				SigningRegion:     region,
				HostnameImmutable: true,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsconfig, err := config.LoadDefaultConfig(ctx, config.WithEndpointResolverWithOptions(customResolver), config.WithRegion(region))
	if err != nil {
		return infrastructure.S3Uploader{}, err
	}
	return infrastructure.NewS3Uploader(s3.NewFromConfig(awsconfig), bucketName, os.Getenv("BUCKET_KEY_PREFIX"))
}
