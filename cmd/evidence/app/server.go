// Package app provides the evidence server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/evidence-x/cmd/evidence/app/options"
	evidencesvc "github.com/kart-io/evidence-x/internal/evidence"
	"github.com/kart-io/evidence-x/pkg/infra/app"
)

// commandDesc is the description of the command.
const commandDesc = `Evidence-X Service

Answers questions about uploaded documents with cited evidence.

This server provides:
  - Document upload (PDF, DOCX, XLSX, Markdown, plain text) and sentence chunking
  - Batched, cached embeddings with cosine-similarity retrieval
  - Grounded answer generation with a confidence score
  - An independent verification pass over every answer`

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	application := app.NewApp(
		app.WithName(evidencesvc.Name),
		app.WithShortDescription("Evidence-backed question answering over uploaded documents"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)

	return application
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return server.Run(ctx)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
