package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"medinsight/api/internal/logger"
)

type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

// DB is a *sql.DB that knows its SQL dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// ParseDSN picks the driver for a DATABASE_URL.
// postgres:// and postgresql:// go to pgx; sqlite://<path>, file:<path> and *.db to sqlite.
func ParseDSN(dsn string) (Dialect, string, error) {
	dsn = strings.TrimSpace(dsn)
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return Postgres, dsn, nil
	case strings.HasPrefix(lower, "sqlite://"):
		return SQLite, sqliteDSN(dsn[len("sqlite://"):]), nil
	case strings.HasPrefix(lower, "file:"), strings.HasSuffix(lower, ".db"), lower == ":memory:":
		return SQLite, sqliteDSN(dsn), nil
	}
	return 0, "", fmt.Errorf("unsupported DATABASE_URL scheme")
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") || path == ":memory:" {
		return path
	}
	return path + "?mode=rwc"
}

// Open connects and pings with a short backoff.
func Open(ctx context.Context, dsn string, log *logger.Logger) (*DB, error) {
	if log == nil {
		log = logger.Nop()
	}
	dialect, source, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	driver := "pgx"
	if dialect == SQLite {
		driver = "sqlite"
	}
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if dialect == SQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(1 * time.Hour)
	}

	err = retry.Do(
		func() error {
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			return db.PingContext(pctx)
		},
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("db ping failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}

	if dialect == SQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			log.Warn("sqlite WAL not enabled", "error", err)
		}
	}
	log.Info("database connected", "dialect", dialect.String())
	return &DB{DB: db, Dialect: dialect}, nil
}

// Rebind turns $n placeholders into ? for sqlite.
func (d *DB) Rebind(q string) string {
	if d.Dialect != SQLite {
		return q
	}
	var sb strings.Builder
	for i := 0; i < len(q); i++ {
		if q[i] == '$' && i+1 < len(q) && q[i+1] >= '0' && q[i+1] <= '9' {
			j := i + 1
			for j < len(q) && q[j] >= '0' && q[j] <= '9' {
				j++
			}
			if _, err := strconv.Atoi(q[i+1 : j]); err == nil {
				sb.WriteByte('?')
				i = j - 1
				continue
			}
		}
		sb.WriteByte(q[i])
	}
	return sb.String()
}

// EnsureSchema creates the analyses table and its indexes.
func (d *DB) EnsureSchema(ctx context.Context) error {
	jsonType, tsType := "JSONB", "TIMESTAMPTZ"
	if d.Dialect == SQLite {
		jsonType, tsType = "TEXT", "TEXT"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id TEXT PRIMARY KEY,
			created_at ` + tsType + ` NOT NULL,
			modality TEXT NOT NULL,
			severity TEXT NOT NULL,
			summary TEXT NOT NULL,
			details ` + jsonType + ` NOT NULL,
			recommended_actions ` + jsonType + ` NOT NULL,
			disclaimer TEXT NOT NULL,
			ocr_has_text BOOLEAN NOT NULL DEFAULT FALSE,
			ocr_excerpt TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_modality ON analyses(modality)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_severity ON analyses(severity)`,
	}
	for _, s := range stmts {
		if _, err := d.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// timeArg binds t so that created_at orders correctly in both dialects.
func (d *DB) timeArg(t time.Time) any {
	if d.Dialect == SQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}

// dbTime scans timestamps stored natively or as text.
type dbTime struct{ t time.Time }

func (d *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.t = v.UTC()
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	case nil:
		d.t = time.Time{}
		return nil
	}
	return fmt.Errorf("unsupported time value %T", src)
}

func (d *dbTime) parse(s string) error {
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unparseable time %q", s)
}
