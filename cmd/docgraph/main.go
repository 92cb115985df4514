package main

import (
	"context"
	"fmt"
	"os"

	"github.com/docgraph/ingest/internal/app"
	"github.com/docgraph/ingest/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background(), build); err != nil {
		os.Exit(1)
	}
}

func build(ctx context.Context) (*app.Container, error) {
	cfg, awsCfg, err := app.LoadConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return app.Build(ctx, cfg, awsCfg)
}
