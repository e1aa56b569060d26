package storage

import (
	"context"
	"errors"
	"testing"
)

func TestDocumentRepo_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepo(newTestDB(t))

	doc := &DocumentRecord{
		ExternalID: "imm-001",
		SourcePath: "immigration.json",
		Title:      "Karta pobytu",
		Category:   "immigration",
		Hash:       "hash-1",
	}
	if err := repo.Upsert(ctx, doc); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if doc.ID == "" {
		t.Fatal("Upsert() did not assign an ID")
	}
	firstID := doc.ID

	updated := &DocumentRecord{
		ExternalID: "imm-001",
		SourcePath: "immigration.json",
		Title:      "Karta pobytu (2024)",
		Category:   "immigration",
		Hash:       "hash-2",
	}
	if err := repo.Upsert(ctx, updated); err != nil {
		t.Fatalf("Upsert() second call error = %v", err)
	}
	if updated.ID != firstID {
		t.Errorf("Upsert() ID = %q, want preserved %q", updated.ID, firstID)
	}

	got, err := repo.GetByExternalID(ctx, "imm-001")
	if err != nil {
		t.Fatalf("GetByExternalID() error = %v", err)
	}
	if got.Title != "Karta pobytu (2024)" || got.Hash != "hash-2" {
		t.Errorf("GetByExternalID() = %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("GetByExternalID() UpdatedAt not parsed")
	}
}

func TestDocumentRepo_GetByExternalID(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepo(newTestDB(t))
	if err := repo.Upsert(ctx, &DocumentRecord{
		ExternalID: "emp-001", SourcePath: "employment.json", Title: "Umowa o pracę", Category: "employment", Hash: "h",
	}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	tests := []struct {
		name       string
		externalID string
		wantErr    error
	}{
		{name: "existing document", externalID: "emp-001"},
		{name: "missing document", externalID: "emp-404", wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetByExternalID(ctx, tt.externalID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("GetByExternalID() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetByExternalID() unexpected error: %v", err)
			}
			if got.ExternalID != tt.externalID {
				t.Errorf("GetByExternalID() ExternalID = %q, want %q", got.ExternalID, tt.externalID)
			}
		})
	}
}

func TestDocumentRepo_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	docs := NewDocumentRepo(db)
	chunks := NewChunkRepo(db)

	for _, id := range []string{"pol-002", "pol-001"} {
		doc := &DocumentRecord{ExternalID: id, SourcePath: "police.json", Title: id, Category: "police_traffic", Hash: "h"}
		if err := docs.Upsert(ctx, doc); err != nil {
			t.Fatalf("Upsert(%s) error = %v", id, err)
		}
		if err := chunks.Insert(ctx, &ChunkRecord{ID: id + "-c0", DocumentID: doc.ID}); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	ids, err := docs.ListExternalIDs(ctx)
	if err != nil {
		t.Fatalf("ListExternalIDs() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "pol-001" || ids[1] != "pol-002" {
		t.Errorf("ListExternalIDs() = %v, want [pol-001 pol-002]", ids)
	}

	doc, err := docs.GetByExternalID(ctx, "pol-001")
	if err != nil {
		t.Fatalf("GetByExternalID() error = %v", err)
	}
	if err := docs.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	n, err := chunks.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count() after Delete = %d, want 1", n)
	}
}
