package resilience

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_CollapsesConcurrentCalls(t *testing.T) {
	t.Parallel()

	var flight SingleFlight
	var executions atomic.Int32

	const workers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			val, err, _ := flight.Do("refresh", func() (any, error) {
				executions.Add(1)
				time.Sleep(20 * time.Millisecond)
				return 42, nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if got, _ := val.(int); got != 42 {
				t.Errorf("unexpected value: %v", val)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := executions.Load(); got != 1 {
		t.Fatalf("function executed %d times, want 1", got)
	}
}

func TestSingleFlight_DistinctKeysRunIndependently(t *testing.T) {
	t.Parallel()

	var flight SingleFlight

	a, err, _ := flight.Do("a", func() (any, error) { return "a", nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err, _ := flight.Do("b", func() (any, error) { return "b", nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a == b {
		t.Fatal("expected distinct results for distinct keys")
	}
}
