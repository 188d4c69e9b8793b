package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_SetGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Set(ctx, "patients", []byte(`[1,2]`), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, ok, err := s.Get(ctx, "patients")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(data) != `[1,2]` {
		t.Errorf("unexpected data %s", data)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	s.Set(ctx, "k", []byte("v"), time.Second)
	now = now.Add(2 * time.Second)

	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("expected expired entry to miss")
	}
	if s.Len() != 0 {
		t.Errorf("expected expired entry to be evicted, len=%d", s.Len())
	}
}

func TestMemoryStore_ZeroTTLNeverExpires(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	s.Set(ctx, "k", []byte("v"), 0)
	now = now.Add(100 * time.Hour)
	if _, ok, _ := s.Get(ctx, "k"); !ok {
		t.Error("expected entry without TTL to persist")
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Set(ctx, "a", []byte("1"), time.Minute)
	s.Set(ctx, "b", []byte("2"), time.Minute)

	s.Delete(ctx, "a", "b", "missing")
	if s.Len() != 0 {
		t.Errorf("expected empty store, len=%d", s.Len())
	}
}

func TestLoad_CachesResult(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	calls := 0
	fn := func(context.Context) ([]string, error) {
		calls++
		return []string{"jane", "john"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Load(ctx, s, "patients", time.Minute, fn)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 items, got %d", len(got))
		}
	}
	if calls != 1 {
		t.Errorf("expected loader to run once, ran %d times", calls)
	}
}

func TestLoad_InvalidateForcesRefetch(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	calls := 0
	fn := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	Load(ctx, s, "rewards", time.Minute, fn)
	if err := Invalidate(ctx, s, "rewards"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	got, _ := Load(ctx, s, "rewards", time.Minute, fn)
	if got != 2 {
		t.Errorf("expected refetched value 2, got %d", got)
	}
}

func TestLoad_InvalidateDuringFillIsNotOverwritten(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan []string)
	go func() {
		v, _ := Load(ctx, s, "patients", time.Minute, func(context.Context) ([]string, error) {
			close(started)
			<-release
			return []string{"jane"}, nil
		})
		done <- v
	}()

	<-started
	if err := Invalidate(ctx, s, "patients"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	close(release)
	if got := <-done; len(got) != 1 {
		t.Fatalf("expected the in-flight read to return its snapshot, got %v", got)
	}

	got, err := Load(ctx, s, "patients", time.Minute, func(context.Context) ([]string, error) {
		return []string{"jane", "john"}, nil
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected a refetch after invalidation, got %v", got)
	}
}

func TestMemoryStore_SetIfGeneration(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	gen, _ := s.Generation(ctx, "k")
	if err := s.Bump(ctx, "k"); err != nil {
		t.Fatalf("Bump: %v", err)
	}
	if ok, _ := s.SetIfGeneration(ctx, "k", []byte("old"), time.Minute, gen); ok {
		t.Error("expected write at a stale generation to be refused")
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("expected key to stay empty")
	}

	gen, _ = s.Generation(ctx, "k")
	if ok, _ := s.SetIfGeneration(ctx, "k", []byte("new"), time.Minute, gen); !ok {
		t.Error("expected write at the current generation to succeed")
	}
}

func TestLoad_ErrorNotCached(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	boom := errors.New("store unavailable")

	_, err := Load(ctx, s, "k", time.Minute, func(context.Context) (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}
	if s.Len() != 0 {
		t.Error("failed load must not be cached")
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("down")
}
func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("down")
}
func (failingStore) Delete(context.Context, ...string) error { return errors.New("down") }

func TestLoad_FailingStoreFallsThrough(t *testing.T) {
	got, err := Load(context.Background(), failingStore{}, "k", time.Minute, func(context.Context) (string, error) {
		return "fresh", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "fresh" {
		t.Errorf("expected fresh value, got %s", got)
	}
}

func TestLoad_NilStore(t *testing.T) {
	got, err := Load(context.Background(), nil, "k", time.Minute, func(context.Context) (int, error) { return 7, nil })
	if err != nil || got != 7 {
		t.Errorf("expected 7, got %d (%v)", got, err)
	}
	if err := Invalidate(context.Background(), nil, "k"); err != nil {
		t.Errorf("expected nil-store invalidate to be a no-op, got %v", err)
	}
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	ctx := context.Background()
	if _, err := NewRedisClient(ctx, ""); err == nil {
		t.Error("expected error for empty url")
	}
	if _, err := NewRedisClient(ctx, "http://not-redis"); err == nil {
		t.Error("expected error for non-redis scheme")
	}
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	s := NewRedisStore(nil, "followup:")
	if got := s.key("patients"); got != "followup:patients" {
		t.Errorf("expected prefixed key, got %s", got)
	}
	if got := s.genKey("patients"); got != "followup:gen:patients" {
		t.Errorf("expected prefixed generation key, got %s", got)
	}
}
