package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"coursectl/internal/api"
	"coursectl/internal/catalog"
	"coursectl/internal/credstore"
	"coursectl/internal/progress"
	"coursectl/internal/repositories"
	"coursectl/internal/session"
	"coursectl/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for
// each command action. The service graph is built lazily on first use so
// that setup can run against a database that does not exist yet.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db      *sql.DB
	client  *api.Client
	creds   *credstore.Store
	session *session.Manager
	catalog *catalog.Catalog
	engine  *progress.Engine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	DB         *sql.DB
}

// NewRunner creates a new Runner with the provided configuration.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, coursesCommand, enrollCommand, progressCommand, watchCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// connect builds the service graph: database, credential store, API client,
// session manager, catalog, and progress engine. Idempotent.
func (r *Runner) connect() error {
	if r.session != nil {
		return nil
	}

	if r.db == nil {
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		r.db = db
	}

	credRepo := repositories.NewCredentialRepository(r.db)
	snapRepo := repositories.NewProgressSnapshotRepository(r.db)

	credDir := filepath.Join(os.Getenv("HOME"), ".coursectl")
	r.creds = credstore.NewStore(r.logger,
		credstore.NewDBBackend(credRepo),
		credstore.NewFileBackend(credDir),
	)

	r.client = api.NewClient(api.ClientOpts{
		BaseURL:    r.config.API.BaseURL,
		HTTPClient: r.httpClient,
		RateLimit:  r.config.API.RateLimit,
		Logger:     r.logger,
	})

	r.session = session.NewManager(session.ManagerOpts{
		Client:      r.client,
		Credentials: r.creds,
		Logger:      r.logger,
	})
	r.client.SetToken(r.session.Token)

	r.catalog = catalog.NewCatalog(r.client, r.logger)
	r.engine = progress.NewEngine(progress.EngineOpts{
		Client:    r.client,
		Snapshots: snapRepo,
		Logger:    r.logger,
	})

	return nil
}

// restore connects and verifies any stored credential, returning the
// resulting session state.
func (r *Runner) restore(ctx context.Context) (session.State, error) {
	if err := r.connect(); err != nil {
		return session.StateUnauthenticated, err
	}
	return r.session.Initialize(ctx), nil
}

// requireAuth connects, restores the session, and fails when no valid
// credential is available.
func (r *Runner) requireAuth(ctx context.Context) error {
	state, err := r.restore(ctx)
	if err != nil {
		return err
	}
	if state != session.StateAuthenticated {
		return shared.ErrNotAuthenticated
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
