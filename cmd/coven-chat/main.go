// ABOUTME: Terminal chat client for a streaming assistant endpoint
// ABOUTME: Interactive REPL by default, plus subcommands for managing archived sessions

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/2389/coven-chat/internal/client"
	"github.com/2389/coven-chat/internal/config"
	"github.com/2389/coven-chat/internal/conversation"
	"github.com/2389/coven-chat/internal/logging"
	"github.com/2389/coven-chat/internal/store"
)

// Version is set at build time.
var Version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	endpoint   string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "coven-chat",
		Short: "Chat with a streaming assistant from the terminal",
		Long: `coven-chat keeps one active conversation and an archive of past ones.

Replies stream in as they are generated. Conversations are stored locally
and rotate into the archive after a period of inactivity.

Type /help inside the chat for commands.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			r := newREPL(a.mgr, cmd.InOrStdin(), cmd.OutOrStdout())
			r.timeoutNotice = a.timedOut
			return r.run(cmd.Context())
		},
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default $COVEN_CHAT_CONFIG or ~/.config/coven/chat.yaml)")
	root.PersistentFlags().StringVar(&flags.endpoint, "endpoint", "", "chat endpoint URL (overrides config)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newSessionsCmd(flags))
	root.AddCommand(newShowCmd(flags))
	root.AddCommand(newDeleteCmd(flags))
	root.AddCommand(newPurgeCmd(flags))

	return root
}

// app bundles everything a command needs and tears it down in order
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    store.Store
	mgr      *conversation.Manager
	timedOut chan struct{}
	cleanup  []func() error
}

func openApp(flags *globalFlags, logOut io.Writer) (*app, error) {
	path := flags.configPath
	if path == "" {
		path = config.DefaultPath()
	}

	var cfg *config.Config
	var err error
	if flags.configPath != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadOrDefault(path)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if flags.endpoint != "" {
		cfg.Endpoint.URL = flags.endpoint
	}
	if flags.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	logger, closeLog, err := logging.Setup(cfg.Logging, logOut)
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}
	slog.SetDefault(logger)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		timedOut: make(chan struct{}, 1),
		cleanup:  []func() error{closeLog},
	}

	a.store, err = openStore(cfg.Storage)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening store: %w", err)
	}
	a.cleanup = append(a.cleanup, a.store.Close)

	httpClient := newHTTPClient(cfg.Endpoint.RequestTimeout)
	a.mgr, err = conversation.NewManager(conversation.Options{
		Store:          a.store,
		Fetcher:        client.New(cfg.Endpoint.URL, httpClient, logger),
		Logger:         logger,
		MessagesKey:    cfg.Storage.MessagesKey,
		SessionsKey:    cfg.Storage.SessionsKey,
		MaxMessages:    cfg.Session.MaxMessages,
		MaxSessions:    cfg.Session.MaxSessions,
		SessionTimeout: cfg.Session.Timeout,
		OnSessionTimeout: func() {
			select {
			case a.timedOut <- struct{}{}:
			default:
			}
		},
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("starting conversation manager: %w", err)
	}
	a.cleanup = append(a.cleanup, a.mgr.Close)

	logger.Debug("coven-chat ready",
		"endpoint", cfg.Endpoint.URL,
		"driver", cfg.Storage.Driver,
		"path", cfg.Storage.Path)
	return a, nil
}

// newHTTPClient bounds the wait for response headers only. A reply may keep
// streaming for as long as the request context allows.
func newHTTPClient(headerTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: transport}
}

func openStore(cfg config.StorageConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return store.NewMemoryStore(), nil
	case config.DriverSQLite:
		return store.OpenSQLite(store.DriverSQLite, cfg.Path)
	case config.DriverSQLite3:
		return store.OpenSQLite(store.DriverSQLite3, cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Close releases resources in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](); err != nil && a.logger != nil {
			a.logger.Warn("cleanup failed", "error", err)
		}
	}
	a.cleanup = nil
}
