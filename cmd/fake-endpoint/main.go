// ABOUTME: Stand-in chat endpoint for local development and E2E testing of coven-chat
// ABOUTME: Usage: fake-endpoint [-addr localhost:3000] [-path /api/chat] [-responses replies.toml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/2389/coven-chat/internal/endpoint"
	"github.com/2389/coven-chat/internal/logging"
)

func main() {
	addr := flag.String("addr", "localhost:3000", "HTTP listen address")
	path := flag.String("path", "/api/chat", "chat route")
	responses := flag.String("responses", "", "TOML file of canned replies (default: built-in catalog)")
	minDelay := flag.Duration("min-delay", endpoint.DefaultMinDelay, "minimum pause between chunks")
	maxDelay := flag.Duration("max-delay", endpoint.DefaultMaxDelay, "maximum pause between chunks")
	chunkWords := flag.Int("chunk-words", endpoint.DefaultChunkWords, "words per streamed chunk")
	logLevel := flag.String("log-level", "info", "debug, info, warn, or error")
	logFormat := flag.String("log-format", "text", "text or json")
	flag.Parse()

	logger := slog.New(logging.NewHandler(*logFormat, logging.ParseLevel(*logLevel), os.Stderr))

	opts := options{
		addr:       *addr,
		path:       *path,
		responses:  *responses,
		minDelay:   *minDelay,
		maxDelay:   *maxDelay,
		chunkWords: *chunkWords,
	}
	if err := run(opts, logger); err != nil {
		log.Fatal(err)
	}
}

type options struct {
	addr       string
	path       string
	responses  string
	minDelay   time.Duration
	maxDelay   time.Duration
	chunkWords int
}

func run(opts options, logger *slog.Logger) error {
	if opts.minDelay < 0 || opts.maxDelay < opts.minDelay {
		return fmt.Errorf("invalid delay range %s..%s", opts.minDelay, opts.maxDelay)
	}

	catalog := endpoint.DefaultCatalog()
	if opts.responses != "" {
		var err error
		catalog, err = endpoint.LoadCatalog(opts.responses)
		if err != nil {
			return fmt.Errorf("loading responses: %w", err)
		}
	}

	handler := endpoint.NewHandler(catalog, logger,
		endpoint.WithDelay(opts.minDelay, opts.maxDelay),
		endpoint.WithChunkWords(opts.chunkWords),
	)

	server := &http.Server{
		Addr:              opts.addr,
		Handler:           endpoint.NewMux(opts.path, handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("fake endpoint listening", "addr", opts.addr, "path", opts.path, "rules", len(catalog.Rules))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
