package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStore_GetOrLoad_SharesOneLoad(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) (any, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "ledger", nil
	}

	const callers = 24
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(callers)
	errCh := make(chan error, callers)

	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := store.GetOrLoad(context.Background(), "fees:ledger", loader)
			if err != nil {
				errCh <- err
				return
			}
			if got, _ := v.(string); got != "ledger" {
				t.Errorf("unexpected loaded value: %v", v)
			}
		}()
	}

	close(start)
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestStore_GetOrLoad_ServesCachedValue(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) (any, error) {
		calls.Add(1)
		return "members", nil
	}

	if _, err := store.GetOrLoad(context.Background(), "members", loader); err != nil {
		t.Fatalf("first GetOrLoad error: %v", err)
	}
	if _, err := store.GetOrLoad(context.Background(), "members", loader); err != nil {
		t.Fatalf("second GetOrLoad error: %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestStore_GetDropsExpiredEntries(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Nanosecond)
	ctx := context.Background()

	store.Set(ctx, "fees:ledger", "stale")
	time.Sleep(time.Millisecond)

	if v, ok := store.Get(ctx, "fees:ledger"); ok {
		t.Fatalf("expected the expired entry to be dropped, got %v", v)
	}
}

func TestStore_DeletePrefix(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	ctx := context.Background()

	store.Set(ctx, "sheet:100", "a")
	store.Set(ctx, "sheet:200", "b")
	store.Set(ctx, "members", "c")

	store.DeletePrefix(ctx, "sheet:")

	if _, ok := store.Get(ctx, "sheet:100"); ok {
		t.Fatal("expected sheet:100 to be deleted")
	}
	if _, ok := store.Get(ctx, "sheet:200"); ok {
		t.Fatal("expected sheet:200 to be deleted")
	}
	if _, ok := store.Get(ctx, "members"); !ok {
		t.Fatal("expected members to survive a sheet prefix delete")
	}
}
