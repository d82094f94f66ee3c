// Package store exports tables to SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	_ "modernc.org/sqlite"

	"github.com/PepeHerrera14/final-adquisicion/pkg/table"
)

// Open opens (or creates) a SQLite database file.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return db, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ExportTable replaces table name with the contents of t. Every column is
// TEXT; empty cells are stored as NULL. It runs in one transaction.
func ExportTable(ctx context.Context, db *sql.DB, name string, t *table.Table) (err error) {
	if len(t.Columns) == 0 {
		return fmt.Errorf("export %s: table has no columns", name)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cols := lo.Map(t.Columns, func(c string, _ int) string { return quoteIdent(c) + " TEXT" })
	if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(name)); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(cols, ", "))); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(name), placeholders))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range t.Rows {
		args := lo.Map(row, func(cell string, _ int) any {
			if cell == "" {
				return nil
			}
			return cell
		})
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	log.Info().
		Str("component", "store").
		Str("table", name).
		Int("rows", t.Len()).
		Msg("Table exported")
	return nil
}
