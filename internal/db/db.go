package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

var ErrUnsupportedDriver = errors.New("unsupported database driver")

//go:embed migrations
var migrations embed.FS

// Open connects to the configured database. SQLite is limited to a single
// connection so that ":memory:" databases and write locking behave.
func Open(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	database, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		database.SetMaxOpenConns(1)
		if _, err := database.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("sqlite pragmas: %w", err)
		}
	}
	if err := database.Ping(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	log.Debug().
		Str("driver", driver).
		Msg("Database connection established")
	return database, nil
}

// RunMigrations applies the embedded migrations for driver. SQLite migrates
// through the open handle; Postgres dials its own connection from dsn.
func RunMigrations(database *sql.DB, driver, dsn string) error {
	src, err := iofs.New(migrations, "migrations/"+driver)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	var m *migrate.Migrate
	switch driver {
	case DriverSQLite:
		drv, err := sqlite3.WithInstance(database, &sqlite3.Config{})
		if err != nil {
			return fmt.Errorf("migration driver: %w", err)
		}
		// Not closed: the driver's Close would close the shared handle.
		m, err = migrate.NewWithInstance("iofs", src, "sqlite3", drv)
		if err != nil {
			return fmt.Errorf("init migrations: %w", err)
		}
	case DriverPostgres:
		m, err = migrate.NewWithSourceInstance("iofs", src, dsn)
		if err != nil {
			return fmt.Errorf("init migrations: %w", err)
		}
		defer func() {
			if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
				log.Warn().
					AnErr("source_error", srcErr).
					AnErr("database_error", dbErr).
					Msg("Failed to close migration handle")
			}
		}()
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	log.Info().
		Str("driver", driver).
		Uint("version", version).
		Bool("dirty", dirty).
		Msg("Database migrations applied")
	return nil
}

// Rebind rewrites '?' placeholders to the driver's bind style.
func Rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
