package resilience

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_CollapsesConcurrentCalls(t *testing.T) {
	var g SingleFlight
	var loads atomic.Int32
	var shared atomic.Int32

	const callers = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(callers)

	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			<-start
			val, err, wasShared := g.Do("sheet:1730505600000", func() (any, error) {
				loads.Add(1)
				time.Sleep(20 * time.Millisecond)
				return "sheet", nil
			})
			if err != nil {
				t.Errorf("shared call failed: %v", err)
			}
			if val != "sheet" {
				t.Errorf("unexpected value: %v", val)
			}
			if wasShared {
				shared.Add(1)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := loads.Load(); got != 1 {
		t.Fatalf("expected one load, got %d", got)
	}
	if got := shared.Load(); got != callers-1 {
		t.Fatalf("expected %d shared results, got %d", callers-1, got)
	}
}

func TestSingleFlight_DistinctKeysRunIndependently(t *testing.T) {
	var g SingleFlight

	val, err, wasShared := g.Do("ledger", func() (any, error) { return 42, nil })
	if err != nil || wasShared {
		t.Fatalf("unexpected result: val=%v err=%v shared=%v", val, err, wasShared)
	}

	val, err, wasShared = g.Do("ledger", func() (any, error) { return 43, nil })
	if err != nil || wasShared {
		t.Fatalf("expected a fresh run after the first flight finished, got val=%v err=%v shared=%v", val, err, wasShared)
	}
	if val != 43 {
		t.Fatalf("expected 43, got %v", val)
	}
}
