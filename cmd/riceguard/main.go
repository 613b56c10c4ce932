package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"

	"github.com/franckalain/riceguard/internal/api"
	"github.com/franckalain/riceguard/internal/auth"
	"github.com/franckalain/riceguard/internal/config"
	"github.com/franckalain/riceguard/internal/database"
	"github.com/franckalain/riceguard/internal/session"
)

const usage = `usage: riceguard [-config path] <command> [flags]

commands:
  register  create an account and sign in
  login     sign in
  logout    sign out
  whoami    show the signed-in user
  scan      classify a leaf photo
  history   list, search and delete past scans
`

func main() {
	// an interrupt cancels in-flight requests so deferred cleanup still runs
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app is everything a command needs, built once from configuration
type app struct {
	cfg     *config.Config
	db      *database.SQLiteDB
	session *session.Session
	client  *api.Client
	backend api.Backend
	shell   *auth.Shell

	in  *bufio.Reader
	out io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	log.SetHandler(cli.New(stderr))

	fs := flag.NewFlagSet("riceguard", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", config.GetConfigPath(), "path to configuration file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", fs.Arg(0))
		fs.Usage()
		return 2
	}

	a, err := newApp(ctx, *configPath, stdin, stdout)
	if err != nil {
		log.WithError(err).Error("riceguard.init.failed")
		return 1
	}
	defer a.close()

	if err := cmd(ctx, a, fs.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		fmt.Fprintln(stderr, userText(err))
		return 1
	}
	return 0
}

func newApp(ctx context.Context, configPath string, stdin io.Reader, stdout io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log.SetLevel(cfg.LogLevel())

	db, err := database.NewSQLiteDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local storage: %w", err)
	}

	sess := session.New(db)
	if err := sess.Init(ctx); err != nil {
		db.Close()
		return nil, err
	}

	baseURL := cfg.BaseURL()
	httpClient := api.NewHTTPClient(cfg.API.TimeoutSeconds)
	backend, err := api.NewBackend(cfg.API.Contract, baseURL, httpClient, cfg.API.ModelVersion)
	if err != nil {
		db.Close()
		return nil, err
	}
	client := api.New(baseURL, httpClient)

	log.WithFields(log.Fields{
		"base_url": baseURL,
		"contract": cfg.API.Contract,
		"platform": cfg.Platform,
	}).Debug("riceguard.ready")

	return &app{
		cfg:     cfg,
		db:      db,
		session: sess,
		client:  client,
		backend: backend,
		shell:   auth.NewShell(auth.NewAuthenticator(cfg.API.Contract, client), sess),
		in:      bufio.NewReader(stdin),
		out:     stdout,
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		log.WithError(err).Warn("riceguard.storage.close_failed")
	}
}
