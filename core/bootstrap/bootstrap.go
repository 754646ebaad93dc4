package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jmoiron/sqlx"

	coreconfig "elpbot/core/config"
	coredatabase "elpbot/core/database"
	"elpbot/core/logger"
)

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	// Migrations holds *.up.sql files under MigrationsDir. Nil skips the migration step.
	Migrations    fs.FS
	MigrationsDir string

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config, fs.FS, string) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
// DB is nil when no database is configured or the pool could not be opened.
type Result struct {
	DB *sqlx.DB
	// SchemaErr is set when migrations failed; the pool is kept and the app runs on whatever schema exists.
	SchemaErr error
}

// Run initializes the logger, connects to the database, and applies migrations.
// Only logger failures are fatal: the bot must keep answering users without storage.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}
	if !opts.Database.Enabled() {
		logger.DB.Warn("database not configured, persistence disabled",
			slog.String("event", "db.connect"),
			slog.String("status", "skip"),
		)
		return res, nil
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(opts.Database)
	switch {
	case err == nil:
	case errors.Is(err, coredatabase.ErrUnreachable) && db != nil:
		logger.DB.Warn("database unreachable, continuing with lazy pool",
			slog.String("event", "db.connect"),
			slog.String("status", "retry"),
			slog.String("err", err.Error()),
		)
	default:
		logger.DB.Error("database init failed, persistence disabled",
			slog.String("event", "db.connect"),
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return res, nil
	}
	res.DB = db

	if opts.Migrations == nil {
		return res, nil
	}
	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	dir := opts.MigrationsDir
	if dir == "" {
		dir = "."
	}
	if err := migrate(opts.Database, opts.Migrations, dir); err != nil {
		res.SchemaErr = fmt.Errorf("bootstrap: migrations failed: %w", err)
		logger.MIG.Error("schema not ensured",
			slog.String("event", "db.migrate"),
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
	return res, nil
}
