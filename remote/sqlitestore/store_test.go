package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/remote"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(Config{
		Path:          filepath.Join(dir, "data", "test.db"),
		Tables:        remote.Tables,
		BlobRoot:      filepath.Join(dir, "public"),
		BlobURLPrefix: "/public",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	s := setupTestStore(t)
	if s.db == nil {
		t.Fatal("db should not be nil")
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestInsertAndSelect(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	songs := s.From(remote.TableSongs)

	got, err := songs.Insert(ctx, remote.Row{"id": "2", "title": "ETA", "artist": "NewJeans"})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if len(got) != 1 || got[0].ID() != "2" || got[0]["title"] != "ETA" {
		t.Fatalf("Insert returned %v", got)
	}
	if _, err := songs.Insert(ctx, remote.Row{"id": "1", "title": "light"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	rows, err := songs.Select(ctx, remote.Query{Order: &remote.Order{Column: "id"}})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(rows) != 2 || rows[0].ID() != "1" || rows[1].ID() != "2" {
		t.Errorf("Select order = %v, want ids [1 2]", rows)
	}
}

func TestInsertDuplicateFails(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	letters := s.From(remote.TableLetters)

	if _, err := letters.Insert(ctx, remote.Row{"id": "x"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	_, err := letters.Insert(ctx, remote.Row{"id": "x"})
	if err == nil {
		t.Fatal("expected duplicate insert to fail")
	}
	if !remoteUnavailable(err) {
		t.Errorf("expected store error, got %v", err)
	}
}

func TestInsertWithoutIDFails(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.From(remote.TableSongs).Insert(context.Background(), remote.Row{"title": "no id"}); err == nil {
		t.Fatal("expected insert without id to fail")
	}
}

func TestSelectOrderByJSONColumn(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	ms := s.From(remote.TableMilestones)
	for _, r := range []remote.Row{
		{"id": "a", "date": "2024-06-21"},
		{"id": "b", "date": "2022-05-14"},
		{"id": "c", "date": "2023-04-02"},
	} {
		if _, err := ms.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	asc, err := ms.Select(ctx, remote.Query{Order: &remote.Order{Column: "date"}})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	want := []string{"b", "c", "a"}
	for i, id := range want {
		if asc[i].ID() != id {
			t.Errorf("asc[%d] = %s, want %s", i, asc[i].ID(), id)
		}
	}

	desc, err := ms.Select(ctx, remote.Query{Order: &remote.Order{Column: "date", Descending: true}})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if desc[0].ID() != "a" || desc[2].ID() != "b" {
		t.Errorf("desc order = %v", desc)
	}
}

func TestSelectFilter(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	letters := s.From(remote.TableLetters)
	letters.Insert(ctx, remote.Row{"id": "1", "category": string(model.CategoryMemory)})
	letters.Insert(ctx, remote.Row{"id": "2", "category": string(model.CategoryApology)})

	rows, err := letters.Select(ctx, remote.Query{Filters: []remote.Filter{remote.Eq("category", string(model.CategoryApology))}})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ID() != "2" {
		t.Errorf("filtered rows = %v", rows)
	}

	byID, err := letters.Select(ctx, remote.Query{Filters: []remote.Filter{remote.Eq("id", "1")}})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(byID) != 1 {
		t.Errorf("id filter returned %d rows", len(byID))
	}
}

func TestUpdateMergesAndKeepsID(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	songs := s.From(remote.TableSongs)
	songs.Insert(ctx, remote.Row{"id": "7", "title": "Cruel Summer", "artist": "Taylor Swift"})

	got, err := songs.Update(ctx, remote.Row{"id": "ignored", "description": "our summer drives"}, remote.Eq("id", "7"))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Update returned %d rows, want 1", len(got))
	}
	if got[0].ID() != "7" || got[0]["title"] != "Cruel Summer" || got[0]["description"] != "our summer drives" {
		t.Errorf("Update returned %v", got[0])
	}

	rows, _ := songs.Select(ctx, remote.Query{})
	if rows[0]["description"] != "our summer drives" {
		t.Errorf("stored row = %v", rows[0])
	}
}

func TestUpdateMissingIsNoop(t *testing.T) {
	s := setupTestStore(t)
	got, err := s.From(remote.TableSongs).Update(context.Background(), remote.Row{"title": "x"}, remote.Eq("id", "nope"))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Update of missing id returned %v", got)
	}
	rows, _ := s.From(remote.TableSongs).Select(context.Background(), remote.Query{})
	if len(rows) != 0 {
		t.Errorf("Update of missing id created rows: %v", rows)
	}
}

func TestUpsert(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	songs := s.From(remote.TableSongs)
	songs.Upsert(ctx, remote.Row{"id": "1", "title": "old"})
	got, err := songs.Upsert(ctx, remote.Row{"id": "1", "title": "new"}, remote.Row{"id": "2", "title": "two"})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if len(got) != 2 || got[0]["title"] != "new" {
		t.Errorf("Upsert returned %v", got)
	}
	rows, _ := songs.Select(ctx, remote.Query{})
	if len(rows) != 2 {
		t.Errorf("rows after upsert = %d, want 2", len(rows))
	}
}

func TestDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	songs := s.From(remote.TableSongs)
	songs.Insert(ctx, remote.Row{"id": "1"}, remote.Row{"id": "2"})

	if err := songs.Delete(ctx, remote.Eq("id", "1")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := songs.Delete(ctx, remote.Eq("id", "missing")); err != nil {
		t.Fatalf("Delete of missing id failed: %v", err)
	}
	if err := songs.Delete(ctx); err == nil {
		t.Error("Delete without filter should fail")
	}
	rows, _ := songs.Select(ctx, remote.Query{})
	if len(rows) != 1 || rows[0].ID() != "2" {
		t.Errorf("rows after delete = %v", rows)
	}
}

func TestUnknownTable(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.From("photos").Select(context.Background(), remote.Query{}); err == nil {
		t.Error("expected error for unknown table")
	}
}

func remoteUnavailable(err error) bool {
	_, ok := err.(*remote.StoreError)
	return ok
}
