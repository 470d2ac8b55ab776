package ledger

import (
	"context"
	"database/sql"
	"regexp"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "github.com/mattn/go-sqlite3"    // driver: sqlite3
	"github.com/pkg/errors"
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// SQLLedger пишет результаты в таблицу quiz_results
type SQLLedger struct {
	db     *sql.DB
	driver Driver
}

// OpenSQL открывает базу и создаёт схему, если её ещё нет
func OpenSQL(ctx context.Context, driver Driver, dsn string) (*SQLLedger, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite3"
		if dsn == "" {
			dsn = "file:menuquiz.db?_busy_timeout=5000"
		}
	case DriverPostgres:
		drvName = "pgx"
		if dsn == "" {
			dsn = "postgres://localhost:5432/menuquiz?sslmode=disable"
		}
	default:
		return nil, errors.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	l := &SQLLedger{db: db, driver: driver}
	if err := l.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return l, nil
}

func (l *SQLLedger) ensureSchema(ctx context.Context) error {
	schema := schemaSQLite
	if l.driver == DriverPostgres {
		schema = schemaPostgres
	}
	_, err := l.db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS quiz_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	identity_label TEXT NOT NULL,
	score INTEGER NOT NULL,
	total INTEGER NOT NULL,
	percentage REAL NOT NULL,
	grade TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quiz_results_user ON quiz_results(user_id);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS quiz_results (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	identity_label TEXT NOT NULL,
	score INTEGER NOT NULL,
	total INTEGER NOT NULL,
	percentage DOUBLE PRECISION NOT NULL,
	grade TEXT NOT NULL,
	created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quiz_results_user ON quiz_results(user_id);
`

var placeholderRegexp = regexp.MustCompile(`\?`)

// rewrite переводит ? в $1, $2 для postgres
func (l *SQLLedger) rewrite(query string) string {
	if l.driver != DriverPostgres {
		return query
	}
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

func (l *SQLLedger) AppendResult(ctx context.Context, res Result) error {
	query := `
		INSERT INTO quiz_results (user_id, identity_label, score, total, percentage, grade, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := l.db.ExecContext(ctx, l.rewrite(query),
		res.UserID,
		res.IdentityLabel,
		res.Score,
		res.Total,
		res.Percentage,
		res.Grade,
		res.Timestamp.UnixMilli(),
	)
	return errors.Wrap(err, "insert quiz result")
}

func (l *SQLLedger) Top(ctx context.Context, limit int) ([]Result, error) {
	query := `
		SELECT user_id, identity_label, score, total, percentage, grade, created_at
		FROM quiz_results
		ORDER BY percentage DESC, score DESC, created_at ASC
	`
	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "query quiz results")
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var res Result
		var createdAt int64
		if err := rows.Scan(
			&res.UserID,
			&res.IdentityLabel,
			&res.Score,
			&res.Total,
			&res.Percentage,
			&res.Grade,
			&createdAt,
		); err != nil {
			return nil, err
		}
		res.Timestamp = time.UnixMilli(createdAt)
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rank(results, limit), nil
}

func (l *SQLLedger) Close() error {
	return l.db.Close()
}
