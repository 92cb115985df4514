// Package main implements the Lambda handler that ingests or deletes one
// document per S3 or direct event.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/docgraph/ingest/internal/app"
)

func main() {
	ctx := context.Background()

	cfg, awsCfg, err := app.LoadConfig(ctx)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	container, err := app.Build(ctx, cfg, awsCfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependency container: %v", err)
	}

	container.Logger.Info("ingest worker initialized")
	lambda.StartWithOptions(container.Handler.HandleIngest,
		lambda.WithEnableSIGTERM(func() {
			_ = container.Close(context.Background())
		}),
	)
}
