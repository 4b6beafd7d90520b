// Package sqlstore implements the store primitives over an embedded SQLite
// file, so the process needs no external database. All regions share one
// database handle; each primitive scopes its rows by region.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/inkforge-labs/inkforge/pkg/store"
)

// Backend is a SQLite implementation of store.Backend.
type Backend struct {
	db *bun.DB
}

// Open opens (creating if necessary) the SQLite database at path and ensures
// the schema exists. Use ":memory:" for a throwaway database.
func Open(path string) (*Backend, error) {
	sqldb, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; the core is single-writer by design.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	b := &Backend{db: db}
	if err := b.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func (b *Backend) ensureSchema(ctx context.Context) error {
	models := []interface{}{
		(*regionRow)(nil),
		(*cellRow)(nil),
		(*kvRow)(nil),
		(*logRow)(nil),
	}
	for _, model := range models {
		if _, err := b.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (b *Backend) Close() error { return b.db.Close() }

func (b *Backend) bind(region store.Region, shape string) error {
	ctx := context.Background()
	row := new(regionRow)
	err := b.db.NewSelect().Model(row).Where("region = ?", string(region)).Scan(ctx)
	switch {
	case err == nil:
		if row.Shape != shape {
			return store.ErrRegionShapeConflict
		}
		return nil
	case errors.Is(err, sql.ErrNoRows):
		_, err = b.db.NewInsert().
			Model(&regionRow{Region: string(region), Shape: shape}).
			Exec(ctx)
		return err
	default:
		return fmt.Errorf("failed to look up region %q: %w", region, err)
	}
}

// Cell returns the cell bound to region.
func (b *Backend) Cell(region store.Region) (store.Cell, error) {
	if err := b.bind(region, "cell"); err != nil {
		return nil, err
	}
	return &sqlCell{db: b.db, region: string(region)}, nil
}

// Map returns the ordered map bound to region.
func (b *Backend) Map(region store.Region) (store.Map, error) {
	if err := b.bind(region, "map"); err != nil {
		return nil, err
	}
	return &sqlMap{db: b.db, region: string(region)}, nil
}

// Log returns the append-only log bound to region.
func (b *Backend) Log(region store.Region) (store.Log, error) {
	if err := b.bind(region, "log"); err != nil {
		return nil, err
	}
	return &sqlLog{db: b.db, region: string(region)}, nil
}

type sqlCell struct {
	db     *bun.DB
	region string
}

func (c *sqlCell) Get() ([]byte, bool, error) {
	ctx := context.Background()
	row := new(cellRow)
	err := c.db.NewSelect().Model(row).Where("region = ?", c.region).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cell %q: %w", c.region, err)
	}
	return row.Value, true, nil
}

func (c *sqlCell) Set(value []byte) error {
	ctx := context.Background()
	_, err := c.db.NewInsert().
		Model(&cellRow{Region: c.region, Value: value}).
		On("CONFLICT (region) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to write cell %q: %w", c.region, err)
	}
	return nil
}

func (c *sqlCell) Clear() error {
	ctx := context.Background()
	_, err := c.db.NewDelete().
		Model((*cellRow)(nil)).
		Where("region = ?", c.region).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear cell %q: %w", c.region, err)
	}
	return nil
}

type sqlMap struct {
	db     *bun.DB
	region string
}

func (m *sqlMap) Get(key []byte) ([]byte, bool, error) {
	ctx := context.Background()
	row := new(kvRow)
	err := m.db.NewSelect().Model(row).
		Where("region = ?", m.region).
		Where("k = ?", key).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read map %q: %w", m.region, err)
	}
	return row.Value, true, nil
}

func (m *sqlMap) Set(key, value []byte) error {
	ctx := context.Background()
	_, err := m.db.NewInsert().
		Model(&kvRow{Region: m.region, Key: key, Value: value}).
		On("CONFLICT (region, k) DO UPDATE").
		Set("v = EXCLUDED.v").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to write map %q: %w", m.region, err)
	}
	return nil
}

func (m *sqlMap) Delete(key []byte) (bool, error) {
	ctx := context.Background()
	res, err := m.db.NewDelete().
		Model((*kvRow)(nil)).
		Where("region = ?", m.region).
		Where("k = ?", key).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to delete from map %q: %w", m.region, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (m *sqlMap) Len() (uint64, error) {
	ctx := context.Background()
	n, err := m.db.NewSelect().
		Model((*kvRow)(nil)).
		Where("region = ?", m.region).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count map %q: %w", m.region, err)
	}
	return uint64(n), nil
}

func (m *sqlMap) Clear() error {
	ctx := context.Background()
	_, err := m.db.NewDelete().
		Model((*kvRow)(nil)).
		Where("region = ?", m.region).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear map %q: %w", m.region, err)
	}
	return nil
}

func (m *sqlMap) Ascend(lo, hi []byte, fn func(key, value []byte) bool) error {
	ctx := context.Background()
	query := m.db.NewSelect().
		Model((*kvRow)(nil)).
		Where("region = ?", m.region).
		OrderExpr("k ASC")
	if lo != nil {
		query = query.Where("k >= ?", lo)
	}
	if hi != nil {
		query = query.Where("k < ?", hi)
	}

	var rows []kvRow
	if err := query.Scan(ctx, &rows); err != nil {
		return fmt.Errorf("failed to scan map %q: %w", m.region, err)
	}
	for i := range rows {
		if !fn(rows[i].Key, rows[i].Value) {
			break
		}
	}
	return nil
}

type sqlLog struct {
	db     *bun.DB
	region string
}

func (l *sqlLog) Append(value []byte) (uint64, error) {
	ctx := context.Background()
	next, err := l.Len()
	if err != nil {
		return 0, err
	}
	_, err = l.db.NewInsert().
		Model(&logRow{Region: l.region, Idx: next, Value: value}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to append to log %q: %w", l.region, err)
	}
	return next, nil
}

func (l *sqlLog) Get(index uint64) ([]byte, bool, error) {
	ctx := context.Background()
	row := new(logRow)
	err := l.db.NewSelect().Model(row).
		Where("region = ?", l.region).
		Where("idx = ?", index).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read log %q: %w", l.region, err)
	}
	return row.Value, true, nil
}

func (l *sqlLog) Len() (uint64, error) {
	ctx := context.Background()
	n, err := l.db.NewSelect().
		Model((*logRow)(nil)).
		Where("region = ?", l.region).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count log %q: %w", l.region, err)
	}
	return uint64(n), nil
}

func (l *sqlLog) Iterate(fn func(index uint64, value []byte) bool) error {
	ctx := context.Background()
	var rows []logRow
	err := l.db.NewSelect().
		Model((*logRow)(nil)).
		Where("region = ?", l.region).
		OrderExpr("idx ASC").
		Scan(ctx, &rows)
	if err != nil {
		return fmt.Errorf("failed to scan log %q: %w", l.region, err)
	}
	for i := range rows {
		if !fn(rows[i].Idx, rows[i].Value) {
			break
		}
	}
	return nil
}

func (l *sqlLog) Reset() error {
	ctx := context.Background()
	_, err := l.db.NewDelete().
		Model((*logRow)(nil)).
		Where("region = ?", l.region).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset log %q: %w", l.region, err)
	}
	return nil
}
