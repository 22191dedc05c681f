package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fulfillcrm/backend/internal/infrastructure/config"
	"github.com/fulfillcrm/backend/internal/infrastructure/logger"
	"github.com/fulfillcrm/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "internal/infrastructure/migration/migrations"

var errUsage = errors.New("invalid arguments")

// dbCommand runs against a migrator connected to the configured database
type dbCommand struct {
	usage string
	run   func(m *migration.Migrator, log *zap.Logger, args []string) error
}

var dbCommands = map[string]dbCommand{
	"up": {
		usage: "up",
		run: func(m *migration.Migrator, _ *zap.Logger, _ []string) error {
			return m.Up()
		},
	},
	"down": {
		usage: "down",
		run: func(m *migration.Migrator, _ *zap.Logger, _ []string) error {
			return m.Down()
		},
	},
	"steps": {
		usage: "steps <n>",
		run: func(m *migration.Migrator, _ *zap.Logger, args []string) error {
			n, err := intArg(args)
			if err != nil {
				return err
			}
			return m.Steps(n)
		},
	},
	"goto": {
		usage: "goto <version>",
		run: func(m *migration.Migrator, _ *zap.Logger, args []string) error {
			if len(args) == 0 {
				return errUsage
			}
			v, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("%w: version %q", errUsage, args[0])
			}
			return m.GoTo(uint(v))
		},
	},
	"version": {
		usage: "version",
		run: func(m *migration.Migrator, log *zap.Logger, _ []string) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			if v == 0 {
				log.Info("No migrations applied")
				return nil
			}
			log.Info("Current migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
			return nil
		},
	},
	"force": {
		usage: "force <version>",
		run: func(m *migration.Migrator, log *zap.Logger, args []string) error {
			v, err := intArg(args)
			if err != nil {
				return err
			}
			log.Warn("Forcing migration version without running migrations", zap.Int("version", v))
			return m.Force(v)
		},
	},
}

func intArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, errUsage
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", errUsage, args[0])
	}
	return n, nil
}

func main() {
	var (
		migrationsDir string
		logLevel      string
	)
	flag.StringVar(&migrationsDir, "dir", defaultMigrationsDir, "Directory new migrations are created in")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	command, rest := args[0], args[1:]

	logCfg := logger.ForEnv("development")
	logCfg.Level = logLevel
	logCfg.TimeFormat = "2006-01-02 15:04:05"
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()
	log = log.With(zap.String("command", command))

	switch command {
	case "create":
		err = createMigration(log, migrationsDir, rest)
	case "list":
		err = listMigrations(log)
	default:
		cmd, ok := dbCommands[command]
		if !ok {
			log.Error("Unknown command")
			printUsage()
			os.Exit(2)
		}
		err = runDBCommand(log, cmd, rest)
		if errors.Is(err, errUsage) {
			log.Error("Usage: migrate " + cmd.usage)
		}
	}
	if err != nil {
		log.Fatal("Migration command failed", zap.Error(err))
	}
}

func runDBCommand(log *zap.Logger, cmd dbCommand, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("versioned migrations need the postgres driver, configured %q", cfg.Database.Driver)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, log)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()
	return cmd.run(m, log, args)
}

func createMigration(log *zap.Logger, dir string, args []string) error {
	if len(args) == 0 {
		log.Error("Usage: migrate create <name> [description]")
		return errUsage
	}
	description := ""
	if len(args) > 1 {
		description = args[1]
	}
	mf, err := migration.CreateMigration(dir, args[0], description, time.Now())
	if err != nil {
		return err
	}
	log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func listMigrations(log *zap.Logger) error {
	files, err := migration.ListMigrations()
	if err != nil {
		return err
	}
	log.Info("Embedded migrations", zap.Int("count", len(files)))
	for _, f := range files {
		fmt.Println("  -", f)
	}
	return nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Fulfillment CRM database migrations

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  steps <n>             Apply n migrations (negative n rolls back)
  goto <version>        Migrate up or down to a version
  version               Show the applied version
  force <version>       Set the version without running migrations
  create <name> [desc]  Write an empty up/down pair into -dir
  list                  List the migrations compiled into the binary

Flags:
  -dir string           Directory for new migrations (default: internal/infrastructure/migration/migrations)
  -log-level string     debug, info, warn or error (default: info)

The database is configured like the server, through FCRM_DATABASE_* variables
or a .env file.`)
}
