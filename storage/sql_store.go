package storage

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"banks-etl/models"
)

const insertBatchSize = 50

var identRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name can be used unquoted as a table or
// column name in every supported dialect.
func ValidIdentifier(name string) bool {
	return identRegexp.MatchString(name)
}

type dialect struct {
	driverName  string
	textType    string
	floatType   string
	integerType string
	numbered    bool // $1, $2... instead of ?
}

var dialects = map[string]dialect{
	"sqlite":   {driverName: "sqlite", textType: "TEXT", floatType: "REAL", integerType: "INTEGER"},
	"postgres": {driverName: "postgres", textType: "TEXT", floatType: "DOUBLE PRECISION", integerType: "BIGINT", numbered: true},
	"pgx":      {driverName: "pgx", textType: "TEXT", floatType: "DOUBLE PRECISION", integerType: "BIGINT", numbered: true},
}

func (d dialect) placeholder(n int) string {
	if d.numbered {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// SQLStore is the relational sink. It replaces tables wholesale and runs
// literal queries against them.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// NewSQLStore opens and pings a connection. driver is one of sqlite,
// postgres (lib/pq) or pgx (pgx stdlib).
func NewSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, models.Classify(models.ErrStore, eris.Errorf("store: unsupported driver %q", driver))
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, models.Classify(models.ErrStore, eris.Wrapf(err, "store: open %s", driver))
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, models.Classify(models.ErrStore, eris.Wrapf(err, "store: ping %s", driver))
	}
	return &SQLStore{db: db, dialect: d}, nil
}

// Close releases the connection pool.
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return models.Classify(models.ErrStore, eris.Wrap(err, "store: close"))
	}
	return nil
}

type column struct {
	name  string
	index int
	typ   string
}

// ReplaceTable drops table if it exists, recreates it from the row type and
// inserts every row, all in one transaction. Column types come from the
// struct field kinds: strings become text, floats become floating point and
// integers become integers.
func (s *SQLStore) ReplaceTable(ctx context.Context, table string, rows any) error {
	if !ValidIdentifier(table) {
		return models.Classify(models.ErrStore, eris.Errorf("store: invalid table name %q", table))
	}

	v := reflect.ValueOf(rows)
	if v.Kind() != reflect.Slice {
		return models.Classify(models.ErrStore, eris.Errorf("store: rows must be a slice, got %T", rows))
	}
	cols, err := s.columnsOf(v.Type().Elem())
	if err != nil {
		return models.Classify(models.ErrStore, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Classify(models.ErrStore, eris.Wrap(err, "store: begin"))
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return models.Classify(models.ErrStore, eris.Wrapf(err, "store: drop %s", table))
	}

	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = c.name + " " + c.typ
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))); err != nil {
		return models.Classify(models.ErrStore, eris.Wrapf(err, "store: create %s", table))
	}

	for i := 0; i < v.Len(); i += insertBatchSize {
		end := min(i+insertBatchSize, v.Len())
		if err := s.insertBatch(ctx, tx, table, cols, v, i, end); err != nil {
			return models.Classify(models.ErrStore, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Classify(models.ErrStore, eris.Wrapf(err, "store: commit %s", table))
	}
	return nil
}

func (s *SQLStore) insertBatch(ctx context.Context, tx *sql.Tx, table string, cols []column, rows reflect.Value, start, end int) error {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}

	valueStrings := make([]string, 0, end-start)
	valueArgs := make([]any, 0, (end-start)*len(cols))
	n := 1
	for i := start; i < end; i++ {
		row := reflect.Indirect(rows.Index(i))
		if !row.IsValid() {
			return eris.Errorf("store: nil row at index %d", i)
		}
		ph := make([]string, len(cols))
		for j, c := range cols {
			ph[j] = s.dialect.placeholder(n)
			n++
			valueArgs = append(valueArgs, row.Field(c.index).Interface())
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		table, strings.Join(names, ", "), strings.Join(valueStrings, ","))
	if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
		return eris.Wrapf(err, "store: insert rows %d-%d into %s", start, end-1, table)
	}
	return nil
}

func (s *SQLStore) columnsOf(t reflect.Type) ([]column, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, eris.Errorf("store: row type %s is not a struct", t)
	}

	var cols []column
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("db"); ok {
			if tag == "-" {
				continue
			}
			name = tag
		}
		if !ValidIdentifier(name) {
			return nil, eris.Errorf("store: invalid column name %q", name)
		}

		var typ string
		switch f.Type.Kind() {
		case reflect.String:
			typ = s.dialect.textType
		case reflect.Float32, reflect.Float64:
			typ = s.dialect.floatType
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			typ = s.dialect.integerType
		default:
			return nil, eris.Errorf("store: field %s has unsupported kind %s", f.Name, f.Type.Kind())
		}
		cols = append(cols, column{name: name, index: i, typ: typ})
	}
	if len(cols) == 0 {
		return nil, eris.Errorf("store: row type %s has no columns", t)
	}
	return cols, nil
}

// Query runs a literal statement and returns every row. Values are
// returned as the driver produced them, except []byte which becomes string.
func (s *SQLStore) Query(ctx context.Context, query string) (*models.QueryResult, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, models.Classify(models.ErrStore, eris.Wrapf(err, "store: query %q", query))
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, models.Classify(models.ErrStore, eris.Wrap(err, "store: columns"))
	}

	result := &models.QueryResult{Query: query, Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, models.Classify(models.ErrStore, eris.Wrap(err, "store: scan row"))
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, models.Classify(models.ErrStore, eris.Wrap(err, "store: iterate rows"))
	}
	return result, nil
}
