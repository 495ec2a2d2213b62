package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func doc(i int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"n":%d}`, i))
}

func numbers(t *testing.T, docs []json.RawMessage) []int {
	t.Helper()
	out := make([]int, len(docs))
	for i, d := range docs {
		var v struct{ N int }
		if err := json.Unmarshal(d, &v); err != nil {
			t.Fatalf("unmarshal %s: %v", d, err)
		}
		out[i] = v.N
	}
	return out
}

func TestFileStoreAppendAndList(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data", "transcripts.json")
	s := NewFileStore(path, discardLogger())
	ctx := context.Background()

	if docs, err := s.List(ctx, 0); err != nil || len(docs) != 0 {
		t.Fatalf("missing file should read as empty, got %v, %v", docs, err)
	}

	for i := 1; i <= 3; i++ {
		if err := s.Append(ctx, uuid.NewString(), doc(i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if got := numbers(t, all); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Fatalf("unexpected records %v", got)
	}

	last, _ := s.List(ctx, 2)
	if got := numbers(t, last); !reflect.DeepEqual(got, []int{2, 3}) {
		t.Fatalf("unexpected limited records %v", got)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var onDisk []map[string]int
	if err := json.Unmarshal(raw, &onDisk); err != nil || len(onDisk) != 3 {
		t.Fatalf("file is not a JSON array of records: %s", raw)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestFileStoreConcurrentAppends(t *testing.T) {
	t.Parallel()

	s := NewFileStore(filepath.Join(t.TempDir(), "h.json"), discardLogger())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Append(context.Background(), uuid.NewString(), doc(i)); err != nil {
				t.Errorf("append: %v", err)
			}
		}()
	}
	wg.Wait()

	docs, _ := s.List(context.Background(), 0)
	if len(docs) != 20 {
		t.Fatalf("expected 20 records, got %d", len(docs))
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "h.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewFileStore(path, discardLogger())
	if docs, err := s.List(context.Background(), 0); err != nil || len(docs) != 0 {
		t.Fatalf("corrupt file should read as empty, got %v, %v", docs, err)
	}
	if err := s.Append(context.Background(), "id", doc(1)); err != nil {
		t.Fatalf("append returned error: %v", err)
	}
	docs, _ := s.List(context.Background(), 0)
	if got := numbers(t, docs); !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("unexpected records %v", got)
	}
}

func TestFileStoreRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	s := NewFileStore(filepath.Join(t.TempDir(), "h.json"), discardLogger())
	if err := s.Append(context.Background(), "id", json.RawMessage("nope")); err == nil {
		t.Fatal("expected error for invalid record")
	}
}

func TestFileStoreUnwritableDirectory(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewFileStore(filepath.Join(blocker, "h.json"), discardLogger())
	if err := s.Append(context.Background(), "id", doc(1)); err == nil {
		t.Fatal("expected error when the parent is a file")
	}
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, err := ConnectRedis(ctx, mr.Addr(), "gapcapture:transcripts", discardLogger())
	if err != nil {
		t.Fatalf("connect returned error: %v", err)
	}
	defer s.Close()

	for i := 1; i <= 3; i++ {
		if err := s.Append(ctx, uuid.NewString(), doc(i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	mr.RPush("gapcapture:transcripts", "{corrupt")
	if err := s.Append(ctx, uuid.NewString(), doc(4)); err != nil {
		t.Fatalf("append: %v", err)
	}

	stored, err := mr.List("gapcapture:transcripts")
	if err != nil || len(stored) != 5 {
		t.Fatalf("unexpected stored entries %d, %v", len(stored), err)
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if got := numbers(t, all); !reflect.DeepEqual(got, []int{1, 2, 3, 4}) {
		t.Fatalf("unexpected records %v", got)
	}

	last, _ := s.List(ctx, 2)
	if got := numbers(t, last); !reflect.DeepEqual(got, []int{4}) {
		t.Fatalf("expected corrupt entry to be skipped in window, got %v", got)
	}
}

func TestRedisStoreConnectFailure(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := ConnectRedis(ctx, addr, "k", discardLogger()); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestRedisStoreAppendError(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client, "k", discardLogger())
	defer s.Close()

	mr.SetError("READONLY replica")
	if err := s.Append(context.Background(), "id", doc(1)); err == nil {
		t.Fatal("expected append error")
	}
}

func TestOrderRows(t *testing.T) {
	t.Parallel()

	base := time.Unix(1700000000, 0)
	rows := []row{
		{createdAt: base.Add(2 * time.Second), record: `{"n":3}`},
		{createdAt: base, record: `{"n":1}`},
		{createdAt: base.Add(time.Second), record: `garbage`},
		{createdAt: base.Add(time.Second), record: `{"n":2}`},
	}

	docs := tail(orderRows(rows), 0)
	if got := numbers(t, docs); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestNopStore(t *testing.T) {
	t.Parallel()

	var s Store = NopStore{}
	if err := s.Append(context.Background(), "id", doc(1)); err != nil {
		t.Fatal(err)
	}
	if docs, err := s.List(context.Background(), 0); err != nil || docs != nil {
		t.Fatalf("unexpected list %v, %v", docs, err)
	}
}
