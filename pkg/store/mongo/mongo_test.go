package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/matzehuels/constellation/pkg/errors"
	"github.com/matzehuels/constellation/pkg/matrix"
	"github.com/matzehuels/constellation/pkg/store"
)

func TestNotesFilter(t *testing.T) {
	if got := notesFilter(matrix.Filter{}); len(got) != 0 {
		t.Errorf("empty filter = %v", got)
	}
	got := notesFilter(matrix.Filter{FolderID: "f1", TermID: "ignored"})
	want := bson.D{{Key: "folder_id", Value: "f1"}}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("folder filter = %v, want %v", got, want)
	}
}

func TestConnectRequiresURI(t *testing.T) {
	_, err := Connect(context.Background(), Config{})
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
}

// TestStore runs against a live server when CONSTELLATION_TEST_MONGO_URI is set.
func TestStore(t *testing.T) {
	uri := os.Getenv("CONSTELLATION_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("CONSTELLATION_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := "constellation_test_" + uuid.NewString()[:8]
	s, err := Connect(ctx, Config{URI: uri, Database: db, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer func() {
		_ = s.db.Drop(ctx)
		_ = s.Close(ctx)
	}()

	c, err := store.LoadCorpusFile("../testdata/corpus.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Import(ctx, s, c); err != nil {
		t.Fatalf("Import: %v", err)
	}
	// Upserts are idempotent.
	if _, err := store.Import(ctx, s, c); err != nil {
		t.Fatalf("re-Import: %v", err)
	}

	got, err := s.Corpus(ctx, matrix.Filter{FolderID: "critique"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Notes) != 2 || len(got.Thinkers) != 2 || len(got.Terms) != 2 {
		t.Errorf("corpus = %d notes, %d thinkers, %d terms", len(got.Notes), len(got.Thinkers), len(got.Terms))
	}

	m, err := store.BuildMatrix(ctx, s, matrix.Filter{FolderID: "critique"})
	if err != nil {
		t.Fatal(err)
	}
	if b, ok := m.Bubble("reason", "kant"); !ok || b.Frequency != 3 {
		t.Errorf("Reason/Kant = %+v", b)
	}
}
