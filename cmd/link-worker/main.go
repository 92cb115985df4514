// Package main implements the Lambda handler that links a freshly ingested
// document to the documents it references.
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

	container.Logger.Info("link worker initialized")
	lambda.StartWithOptions(container.Handler.HandleLink,
		lambda.WithEnableSIGTERM(func() {
			_ = container.Close(context.Background())
		}),
	)
}
