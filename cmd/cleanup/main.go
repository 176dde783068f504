// Command cleanup runs the stream handler that removes projection records
// orphaned by out-of-band deletes of primary report records.
package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/PrettySolution/driver-infrastructure/store"
	"github.com/PrettySolution/driver-infrastructure/stream"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Fatal("load aws config", zap.Error(err))
	}

	st := store.New(dynamodb.NewFromConfig(awsCfg), store.Config{
		Table: os.Getenv("TABLE_NAME"),
		Index: os.Getenv("INDEX_NAME"),
	}, logger)

	lambda.Start(stream.NewHandler(st, logger).HandleRemove)
}
