package db

import (
	"context"
	"testing"
	"testing/fstest"
)

func TestOpen_AppliesMigrations(t *testing.T) {
	conn := openTestDB(t)

	statuses, err := NewMigrator(conn).Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(statuses) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(statuses))
	}
	for _, s := range statuses {
		if !s.Applied || s.AppliedAt == nil {
			t.Errorf("expected migration %d applied", s.Version)
		}
	}

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM kv_store`).Scan(&n); err != nil {
		t.Fatalf("expected kv_store table: %v", err)
	}
}

func TestMigrator_UpIsIdempotent(t *testing.T) {
	conn := openTestDB(t)
	n, err := NewMigrator(conn).Up(context.Background())
	if err != nil {
		t.Fatalf("up: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 pending migrations, got %d", n)
	}
}

func TestLoadMigrations_OrderAndSkip(t *testing.T) {
	files := fstest.MapFS{
		"010_later.sql":  {Data: []byte("SELECT 1;")},
		"002_second.sql": {Data: []byte("SELECT 1;")},
		"README.md":      {Data: []byte("ignored")},
		"notes.sql":      {Data: []byte("ignored")},
		"abc_x.sql":      {Data: []byte("ignored")},
	}
	m := NewMigrator(nil).WithFiles(files)
	migs, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(migs) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migs))
	}
	if migs[0].Version != 2 || migs[1].Version != 10 {
		t.Errorf("expected versions 2,10, got %d,%d", migs[0].Version, migs[1].Version)
	}
}

func TestMigrator_FailedMigrationRollsBack(t *testing.T) {
	conn := openTestDB(t)
	files := fstest.MapFS{
		"100_bad.sql": {Data: []byte("CREATE TABLE broken (;")},
	}
	m := NewMigrator(conn).WithFiles(files)
	if _, err := m.Up(context.Background()); err == nil {
		t.Fatal("expected error for invalid SQL")
	}
	statuses, _ := m.Status(context.Background())
	if len(statuses) != 1 || statuses[0].Applied {
		t.Errorf("expected failed migration to stay pending, got %+v", statuses)
	}
}
