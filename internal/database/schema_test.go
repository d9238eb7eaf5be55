package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

type recordingExecer struct {
	stmts  []string
	failAt int
}

func (r *recordingExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.stmts = append(r.stmts, sql)
	if r.failAt > 0 && len(r.stmts) == r.failAt {
		return pgconn.CommandTag{}, errors.New("permission denied")
	}
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func TestEnsureSchema(t *testing.T) {
	db := &recordingExecer{}
	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if len(db.stmts) != len(Schema) {
		t.Fatalf("executed %d statements, want %d", len(db.stmts), len(Schema))
	}
	for _, stmt := range db.stmts {
		if !strings.Contains(stmt, "IF NOT EXISTS") {
			t.Errorf("statement is not idempotent: %s", stmt)
		}
	}
}

func TestEnsureSchemaStopsOnError(t *testing.T) {
	db := &recordingExecer{failAt: 2}
	err := EnsureSchema(context.Background(), db)
	if err == nil || !strings.Contains(err.Error(), "statement 1") {
		t.Fatalf("EnsureSchema() error = %v, want failure at statement 1", err)
	}
	if len(db.stmts) != 2 {
		t.Errorf("executed %d statements after failure, want 2", len(db.stmts))
	}
}
