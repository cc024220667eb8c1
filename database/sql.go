// Package database opens SQL connections with pool settings and optional
// Prometheus query-duration metrics.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/amirrezaask/randomset/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	SQLite = "sqlite3"
	MySQL  = "mysql"
)

type DataSource struct {
	Driver                string
	Name                  string
	ConnectionString      string
	MetricsNamespace      string
	MaxOpenConnections    int
	MaxIdleConnections    int
	IdleConnectionTimeout time.Duration
	OpenConnectionTimeout time.Duration
	// Registerer receives the query-duration histogram. Nil disables metrics.
	Registerer prometheus.Registerer
}

type DB struct {
	*sql.DB
	name    string
	kind    string
	queryHV *prometheus.HistogramVec
}

var buckets = []float64{
	0.0005,
	0.001, // 1ms
	0.002,
	0.005,
	0.01, // 10ms
	0.02,
	0.05,
	0.1, // 100 ms
	0.2,
	0.5,
	1.0, // 1s
	2.0,
	5.0,
	10.0, // 10s
	15.0,
	20.0,
	30.0,
}

// Open connects to the data source and pings it. The driver must already be
// registered by the caller through a blank import.
func Open(ds DataSource) (*DB, error) {
	db, err := sql.Open(ds.Driver, ds.ConnectionString)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open %s connection %s", ds.Driver, ds.Name)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "cannot ping %s connection %s", ds.Driver, ds.Name)
	}

	db.SetConnMaxLifetime(ds.OpenConnectionTimeout)
	db.SetConnMaxIdleTime(ds.IdleConnectionTimeout)
	db.SetMaxIdleConns(ds.MaxIdleConnections)
	db.SetMaxOpenConns(ds.MaxOpenConnections)

	d := FromConnection(db, ds.Name)
	if ds.Registerer != nil {
		d.queryHV = promauto.With(ds.Registerer).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ds.MetricsNamespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query durations by [dbName] [goCall] [type] [table]",
			Buckets:   buckets,
		}, []string{"dbName", "goCall", "type", "table"})
	}

	return d, nil
}

// FromConnection wraps an already opened connection without metrics.
func FromConnection(db *sql.DB, name string) *DB {
	return &DB{
		DB:   db,
		name: name,
		kind: driverKind(db),
	}
}

func driverKind(db *sql.DB) string {
	switch fmt.Sprintf("%T", db.Driver()) {
	case "*sqlite3.SQLiteDriver":
		return SQLite
	case "*mysql.MySQLDriver":
		return MySQL
	default:
		return "unknown"
	}
}

// Kind is the dialect behind the connection, SQLite, MySQL or "unknown".
func (db *DB) Kind() string { return db.kind }

func (db *DB) Name() string { return db.name }

var (
	selectRegex = regexp.MustCompile(`^\s*SELECT\s+.*\s+FROM\s+(\w+)\s*.*$`)
	insertRegex = regexp.MustCompile(`^\s*INSERT\s+INTO\s+(\w+)\s*.*$`)
	updateRegex = regexp.MustCompile(`^\s*UPDATE\s+(\w+)\s*SET\s+.*$`)
	deleteRegex = regexp.MustCompile(`^\s*DELETE\s+FROM\s+(\w+)\s*.*$`)
)

func extractQueryInfo(query string) (queryType, tableName string) {
	query = strings.TrimSpace(strings.ToUpper(query))

	for _, c := range []struct {
		kind string
		re   *regexp.Regexp
	}{
		{"SELECT", selectRegex},
		{"INSERT", insertRegex},
		{"UPDATE", updateRegex},
		{"DELETE", deleteRegex},
	} {
		if matches := c.re.FindStringSubmatch(query); matches != nil {
			return c.kind, matches[1]
		}
	}

	return "unknown", "unknown"
}

func (db *DB) observe(goCall, query string) func() {
	if db.queryHV == nil {
		return func() {}
	}
	queryType, table := extractQueryInfo(query)
	timer := prometheus.NewTimer(db.queryHV.WithLabelValues(db.name, strings.ToLower(goCall), strings.ToLower(queryType), strings.ToLower(table)))
	return func() { timer.ObserveDuration() }
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	defer db.observe("ExecContext", query)()
	return db.DB.ExecContext(ctx, query, args...)
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	defer db.observe("QueryContext", query)()
	return db.DB.QueryContext(ctx, query, args...)
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	defer db.observe("QueryRowContext", query)()
	return db.DB.QueryRowContext(ctx, query, args...)
}

// Tx is a transaction whose statements are observed like the ones run on DB.
type Tx struct {
	*sql.Tx
	db *DB
}

func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	tx, err := db.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "cannot begin transaction on %s", db.name)
	}
	return &Tx{Tx: tx, db: db}, nil
}

func (tx *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	defer tx.db.observe("ExecContext", query)()
	return tx.Tx.ExecContext(ctx, query, args...)
}

func (tx *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	defer tx.db.observe("QueryContext", query)()
	return tx.Tx.QueryContext(ctx, query, args...)
}

func (tx *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	defer tx.db.observe("QueryRowContext", query)()
	return tx.Tx.QueryRowContext(ctx, query, args...)
}

// ToMap reads every row into a column-name keyed map.
func ToMap(rows *sql.Rows, err error) ([]map[string]any, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columnNames, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []map[string]any
	for rows.Next() {
		columns := make([]any, len(columnNames))
		columnPointers := make([]any, len(columnNames))
		for i := range columns {
			columnPointers[i] = &columns[i]
		}

		if err := rows.Scan(columnPointers...); err != nil {
			return nil, err
		}

		m := make(map[string]any, len(columnNames))
		for i, colName := range columnNames {
			m[colName] = columns[i]
		}
		result = append(result, m)
	}

	return result, rows.Err()
}
