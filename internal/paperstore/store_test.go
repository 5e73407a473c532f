package paperstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prepgrid/testprep-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// deadRedis returns a client pointing at nothing, to exercise the
// memory-fallback path.
func deadRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func writePaper(t *testing.T, dir string, paper *model.Paper) {
	t.Helper()
	raw, err := json.Marshal(paper)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, paper.PaperID+".json"), raw, 0o644); err != nil {
		t.Fatal(err)
	}
}

func testStorePaper(id string, year int) *model.Paper {
	return &model.Paper{
		PaperID:         id,
		Label:           "Paper " + id,
		Year:            year,
		Type:            model.PaperTypePYQ,
		DurationMinutes: 60,
		Sections: []model.Section{
			{
				SectionID: "s1",
				Title:     "S1",
				Order:     1,
				Questions: []model.Question{
					{
						QuestionID: id + "-q1",
						Type:       model.QuestionSingleChoice,
						Options:    []string{"a", "b"},
						Correct:    model.CorrectAnswer{Type: model.QuestionSingleChoice, OptionIndex: 0},
						Marks:      model.MarksScheme{Correct: 4, Incorrect: -1},
					},
				},
			},
		},
	}
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	return New(dir, deadRedis(), zerolog.Nop()), dir
}

func TestLoadAndList(t *testing.T) {
	store, dir := newTestStore(t)
	writePaper(t, dir, testStorePaper("old", 2020))
	writePaper(t, dir, testStorePaper("new", 2025))

	if err := store.Load(); err != nil {
		t.Fatal(err)
	}

	infos := store.List()
	if len(infos) != 2 {
		t.Fatalf("List = %d papers, want 2", len(infos))
	}
	// Newest first.
	if infos[0].PaperID != "new" || infos[1].PaperID != "old" {
		t.Errorf("order = %s, %s, want new, old", infos[0].PaperID, infos[1].PaperID)
	}
}

func TestLoadSkipsMalformedFiles(t *testing.T) {
	store, dir := newTestStore(t)
	writePaper(t, dir, testStorePaper("good", 2024))
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "no-id.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := store.Load(); err != nil {
		t.Fatal(err)
	}
	if got := len(store.List()); got != 1 {
		t.Fatalf("List = %d papers, want 1", got)
	}
}

func TestLoadMissingDirFails(t *testing.T) {
	store := New("/nonexistent/papers", deadRedis(), zerolog.Nop())
	if err := store.Load(); err == nil {
		t.Fatal("Load on a missing directory should fail")
	}
}

func TestGet(t *testing.T) {
	store, dir := newTestStore(t)
	writePaper(t, dir, testStorePaper("p1", 2024))
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}

	paper, err := store.Get("p1")
	if err != nil {
		t.Fatal(err)
	}
	if paper.PaperID != "p1" {
		t.Errorf("PaperID = %s, want p1", paper.PaperID)
	}

	if _, err := store.Get("missing"); err != ErrPaperNotFound {
		t.Errorf("Get(missing) = %v, want ErrPaperNotFound", err)
	}
}

func TestStudentPayloadFallsBackWithoutRedis(t *testing.T) {
	store, dir := newTestStore(t)
	writePaper(t, dir, testStorePaper("p1", 2024))
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}

	payload, err := store.StudentPayload(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if payload.PaperID != "p1" || len(payload.Questions) != 1 {
		t.Fatalf("payload = %+v", payload)
	}

	if _, err := store.StudentPayload(context.Background(), "missing"); err != ErrPaperNotFound {
		t.Errorf("StudentPayload(missing) = %v, want ErrPaperNotFound", err)
	}
}
