package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

// LockError surfaces storage contention that outlived the bounded retry
// loop. It aborts the run; everything already written stays durable.
type LockError struct {
	Attempts int
	Err      error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("database locked after %d attempts: %v", e.Attempts, e.Err)
}

func (e *LockError) Unwrap() error { return e.Err }

// ValidationError reports a record that failed required-field checks
// before write.
type ValidationError struct {
	Table  string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("table %s field %s: %s", e.Table, e.Field, e.Reason)
}

// Row is one record keyed by column name. Values must match the
// column's declared Kind.
type Row map[string]any

// Store is a single-writer SQLite store. Writes from concurrent tasks
// within a run serialize on an in-process lock; contention from a
// separate run is retried a bounded number of times with fixed delay.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger

	retries    int
	retryDelay time.Duration
}

// Open opens (or creates) the database file with one writer connection.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	return &Store{
		db:         db,
		logger:     logger,
		retries:    3,
		retryDelay: time.Second,
	}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureTable compiles the schema's field spec and issues its
// create-if-not-exists statement.
func (s *Store) EnsureTable(ctx context.Context, schema Schema) error {
	return s.execRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, schema.CreateStatement())
		return err
	})
}

// Upsert writes records idempotently: any existing row sharing a
// record's primary key is deleted, then the record is inserted. The same
// logical record can therefore be written across retries without
// duplication. Records failing non-key validation are logged and
// skipped; a missing primary-key field aborts the whole record set.
func (s *Store) Upsert(ctx context.Context, schema Schema, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	valid := make([]Row, 0, len(rows))
	for _, row := range rows {
		if err := validateRow(schema, row); err != nil {
			vErr, ok := err.(*ValidationError)
			if ok && !isPrimaryKey(schema, vErr.Field) {
				s.logger.Warn("skipping invalid record", "table", schema.Table, "error", err)
				continue
			}
			return err
		}
		valid = append(valid, row)
	}

	return s.execRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		for _, row := range valid {
			del := sq.Delete(schema.Table).Where(primaryKeyPred(schema, row))
			query, args, err := del.ToSql()
			if err != nil {
				return fmt.Errorf("build delete: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}

			ins := insertBuilder(schema, row)
			query, args, err = ins.ToSql()
			if err != nil {
				return fmt.Errorf("build insert: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}

		return tx.Commit()
	})
}

// InsertAppendOnly inserts records whose natural key is expected to be
// new, re-checking existence immediately before each row's insert so a
// racing earlier run cannot produce a duplicate.
func (s *Store) InsertAppendOnly(ctx context.Context, schema Schema, rows []Row) error {
	for _, row := range rows {
		if err := validateRow(schema, row); err != nil {
			vErr, ok := err.(*ValidationError)
			if ok && !isPrimaryKey(schema, vErr.Field) {
				s.logger.Warn("skipping invalid record", "table", schema.Table, "error", err)
				continue
			}
			return err
		}

		exists, err := s.Exists(ctx, schema, primaryKeyPred(schema, row))
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		if err := s.execRetry(ctx, func() error {
			query, args, err := insertBuilder(schema, row).ToSql()
			if err != nil {
				return fmt.Errorf("build insert: %w", err)
			}
			_, err = s.db.ExecContext(ctx, query, args...)
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}

// FilterNew returns the candidate keys not already present in the table,
// preserving candidate order. Valid only for single-column primary keys.
func (s *Store) FilterNew(ctx context.Context, schema Schema, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if len(schema.PrimaryKey) != 1 {
		return nil, fmt.Errorf("table %s: FilterNew requires a single-column primary key", schema.Table)
	}

	pk := schema.PrimaryKey[0]
	query, args, err := sq.Select(pk).From(schema.Table).Where(sq.Eq{pk: candidates}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	existing := make(map[string]struct{})
	err = s.execRetry(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				return err
			}
			existing[key] = struct{}{}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	fresh := make([]string, 0, len(candidates))
	for _, key := range candidates {
		if _, ok := existing[key]; !ok {
			fresh = append(fresh, key)
		}
	}
	return fresh, nil
}

// Exists reports whether any row matches the predicate.
func (s *Store) Exists(ctx context.Context, schema Schema, pred sq.Sqlizer) (bool, error) {
	query, args, err := sq.Select("1").From(schema.Table).Where(pred).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build select: %w", err)
	}

	var found bool
	err = s.execRetry(ctx, func() error {
		var one int
		scanErr := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
		if scanErr == sql.ErrNoRows {
			found = false
			return nil
		}
		if scanErr != nil {
			return scanErr
		}
		found = true
		return nil
	})
	return found, err
}

// Select runs a filtered read and returns rows keyed by column name.
func (s *Store) Select(ctx context.Context, schema Schema, pred sq.Sqlizer, limit uint64) ([]Row, error) {
	builder := sq.Select(schema.Columns()...).From(schema.Table)
	if pred != nil {
		builder = builder.Where(pred)
	}
	if limit > 0 {
		builder = builder.Limit(limit)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var results []Row
	err = s.execRetry(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		cols := schema.Columns()
		results = results[:0]
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return err
			}
			row := make(Row, len(cols))
			for i, col := range cols {
				row[col] = values[i]
			}
			results = append(results, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Update applies column assignments to rows matching the predicate.
func (s *Store) Update(ctx context.Context, schema Schema, set map[string]any, pred sq.Sqlizer) error {
	builder := sq.Update(schema.Table).Where(pred)
	for col, val := range set {
		builder = builder.Set(col, encodeValue(val))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	return s.execRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

// execRetry serializes writes in-process and retries the operation on
// storage contention from other processes, with fixed delay, before
// surfacing a LockError.
func (s *Store) execRetry(ctx context.Context, op func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		err = op()
		if err == nil || !isLocked(err) {
			return err
		}
		if attempt < s.retries {
			s.logger.Warn("database locked, retrying", "attempt", attempt+1, "delay", s.retryDelay)
			select {
			case <-time.After(s.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return &LockError{Attempts: s.retries + 1, Err: err}
}

func isLocked(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

func validateRow(schema Schema, row Row) error {
	for _, pk := range schema.PrimaryKey {
		val, ok := row[pk]
		if !ok || val == nil || val == "" {
			return &ValidationError{Table: schema.Table, Field: pk, Reason: "missing primary key value"}
		}
	}

	for _, f := range schema.Fields {
		if f.Kind != KindTimestamp || f.Nullable {
			continue
		}
		ts, ok := row[f.Name].(time.Time)
		if !ok || ts.IsZero() {
			return &ValidationError{Table: schema.Table, Field: f.Name, Reason: "missing or zero timestamp"}
		}
	}
	return nil
}

func isPrimaryKey(schema Schema, field string) bool {
	for _, pk := range schema.PrimaryKey {
		if pk == field {
			return true
		}
	}
	return false
}

func primaryKeyPred(schema Schema, row Row) sq.Eq {
	pred := sq.Eq{}
	for _, pk := range schema.PrimaryKey {
		pred[pk] = encodeValue(row[pk])
	}
	return pred
}

func insertBuilder(schema Schema, row Row) sq.InsertBuilder {
	cols := schema.Columns()
	values := make([]any, 0, len(cols))
	for _, col := range cols {
		values = append(values, encodeValue(row[col]))
	}
	return sq.Insert(schema.Table).Columns(cols...).Values(values...)
}

// encodeValue maps Go values to their stored representation; timestamps
// are stored as RFC 3339 text so they round-trip with their offset.
func encodeValue(v any) any {
	if ts, ok := v.(time.Time); ok {
		return ts.Format(time.RFC3339Nano)
	}
	return v
}
