package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/portfolio/backend/internal/config"
	"github.com/portfolio/backend/internal/model"
)

func newMessage(id int64, name string) *model.StoredMessage {
	return &model.StoredMessage{
		ID:        id,
		Name:      name,
		Email:     strings.ToLower(name) + "@example.com",
		Message:   "hello from " + name,
		Timestamp: "2024-01-01T00:00:00.000Z",
	}
}

// exerciseRepository runs the behaviour every MessageRepository must share.
func exerciseRepository(t *testing.T, repo MessageRepository) {
	t.Helper()
	ctx := context.Background()

	before, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	id1, err := repo.Append(ctx, newMessage(1704067200000, "Ann"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	// Same millisecond: the second id must be bumped.
	id2, err := repo.Append(ctx, newMessage(1704067200000, "Ben"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if id2 <= id1 {
		t.Errorf("expected strictly increasing ids, got %d then %d", id1, id2)
	}

	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != len(before)+2 {
		t.Fatalf("expected %d messages, got %d", len(before)+2, len(got))
	}
	last := got[len(got)-1]
	if last.ID != id2 || last.Name != "Ben" || last.Email != "ben@example.com" || last.Read {
		t.Errorf("unexpected last message: %+v", last)
	}
	if got[len(got)-2].ID != id1 {
		t.Errorf("expected creation order, got ids %d, %d", got[len(got)-2].ID, last.ID)
	}

	if err := repo.MarkRead(ctx, id1); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	// Marking twice is not an error.
	if err := repo.MarkRead(ctx, id1); err != nil {
		t.Fatalf("MarkRead again: %v", err)
	}
	got, _ = repo.List(ctx)
	for _, m := range got {
		if m.ID == id1 && !m.Read {
			t.Errorf("expected message %d to be read", id1)
		}
		if m.ID == id2 && m.Read {
			t.Errorf("expected message %d to stay unread", id2)
		}
	}

	if err := repo.MarkRead(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// FileMessageRepository
// ---------------------------------------------------------------------------

func TestFileMessageRepository(t *testing.T) {
	repo, err := NewFileMessageRepository(filepath.Join(t.TempDir(), "messages.json"))
	if err != nil {
		t.Fatalf("NewFileMessageRepository: %v", err)
	}
	exerciseRepository(t, repo)
}

func TestFileMessageRepository_CreatesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "messages.json")
	if _, err := NewFileMessageRepository(path); err != nil {
		t.Fatalf("NewFileMessageRepository: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("expected empty array, got %q", data)
	}
}

func TestFileMessageRepository_PrettyPrinted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.json")
	repo, err := NewFileMessageRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Append(context.Background(), newMessage(7, "Ann")); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	want := `[
  {
    "id": 7,
    "name": "Ann",
    "email": "ann@example.com",
    "message": "hello from Ann",
    "timestamp": "2024-01-01T00:00:00.000Z",
    "read": false
  }
]`
	if string(data) != want {
		t.Errorf("unexpected file contents:\n%s", data)
	}
}

func TestFileMessageRepository_KeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.json")
	existing := `[{"id":1,"name":"Old","email":"old@example.com","message":"hi","timestamp":"t","read":true}]`
	if err := os.WriteFile(path, []byte(existing), 0o600); err != nil {
		t.Fatal(err)
	}
	repo, err := NewFileMessageRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := repo.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "Old" || !got[0].Read {
		t.Errorf("unexpected messages: %+v", got)
	}
}

func TestFileMessageRepository_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	repo, err := NewFileMessageRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Append(context.Background(), newMessage(1, "Ann")); err == nil {
		t.Error("expected decode error for corrupt file")
	}
	if _, err := repo.List(context.Background()); err == nil {
		t.Error("expected decode error for corrupt file")
	}
}

func TestFileMessageRepository_ConcurrentAppends(t *testing.T) {
	repo, err := NewFileMessageRepository(filepath.Join(t.TempDir(), "messages.json"))
	if err != nil {
		t.Fatal(err)
	}
	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Append(context.Background(), newMessage(100, "Ann")); err != nil {
				t.Errorf("Append: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := repo.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != n {
		t.Fatalf("expected %d messages, got %d", n, len(got))
	}
	seen := make(map[int64]bool)
	for _, m := range got {
		if seen[m.ID] {
			t.Errorf("duplicate id %d", m.ID)
		}
		seen[m.ID] = true
	}
}

func TestFileMessageRepository_CanceledContext(t *testing.T) {
	repo, err := NewFileMessageRepository(filepath.Join(t.TempDir(), "messages.json"))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := repo.Append(ctx, newMessage(1, "Ann")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Open
// ---------------------------------------------------------------------------

func TestOpen(t *testing.T) {
	ctx := context.Background()

	repo, cleanup, err := Open(ctx, config.Store{Backend: config.StoreNone})
	if err != nil || repo != nil {
		t.Errorf("expected nil repo for none, got %v, %v", repo, err)
	}
	cleanup()

	repo, cleanup, err = Open(ctx, config.Store{Backend: config.StoreFile, MessagesFile: filepath.Join(t.TempDir(), "m.json")})
	if err != nil {
		t.Fatalf("Open file: %v", err)
	}
	if _, ok := repo.(*FileMessageRepository); !ok {
		t.Errorf("expected *FileMessageRepository, got %T", repo)
	}
	cleanup()

	if _, _, err := Open(ctx, config.Store{Backend: "mongo"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, _, err := Open(ctx, config.Store{Backend: config.StoreRedis, RedisURL: "not-a-url"}); err == nil {
		t.Error("expected error for malformed redis url")
	}
}

// ---------------------------------------------------------------------------
// Postgres and Redis (need live services)
// ---------------------------------------------------------------------------

func TestPgMessageRepository(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()
	if err := Migrate(ctx, pool, nil); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, "TRUNCATE contact_messages"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	exerciseRepository(t, NewPgMessageRepository(pool))
}

func TestPgMessageRepository_ConcurrentInstances(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	poolA, err := NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer poolA.Close()
	poolB, err := NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer poolB.Close()
	if err := Migrate(ctx, poolA, nil); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if _, err := poolA.Exec(ctx, "TRUNCATE contact_messages"); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	// two pools stand in for two server instances
	repos := []MessageRepository{NewPgMessageRepository(poolA), NewPgMessageRepository(poolB)}
	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(repo MessageRepository) {
			defer wg.Done()
			if _, err := repo.Append(ctx, newMessage(100, "Ann")); err != nil {
				t.Errorf("Append: %v", err)
			}
		}(repos[i%2])
	}
	wg.Wait()

	got, err := repos[0].List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != n {
		t.Fatalf("expected %d messages, got %d", n, len(got))
	}
}

func TestRedisMessageRepository(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	repo, err := NewRedisMessageRepository(ctx, url)
	if err != nil {
		t.Fatalf("NewRedisMessageRepository: %v", err)
	}
	defer repo.Close()
	if err := repo.client.Del(ctx, redisIndexKey, redisDataKey, redisLastIDKey).Err(); err != nil {
		t.Fatalf("reset keys: %v", err)
	}
	exerciseRepository(t, repo)
}
