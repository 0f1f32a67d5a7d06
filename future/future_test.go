package future

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/everyday-items/flowkit/executor"
	"github.com/everyday-items/flowkit/ferrors"
	"github.com/everyday-items/flowkit/flog"
)

func TestAsyncThenValue(t *testing.T) {
	f := Async(executor.Immediate, func() (int, error) { return 41, nil })
	g := Then(f, executor.Immediate, func(v int) (int, error) { return v + 1, nil })

	v, err := g.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestThenSkippedOnError(t *testing.T) {
	wantErr := errors.New("boom")
	f := Async(executor.Immediate, func() (int, error) { return 0, wantErr })

	ran := false
	g := Then(f, executor.Immediate, func(int) (int, error) {
		ran = true
		return 0, nil
	})

	_, err := g.Value()
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if ran {
		t.Fatal("Then continuation must not run on the error path")
	}
}

func TestRecoverAlwaysRuns(t *testing.T) {
	wantErr := errors.New("boom")
	f := Async(executor.Immediate, func() (int, error) { return 0, wantErr })

	ran := false
	g := Recover(f, executor.Immediate, func(uf Future[int]) (int, error) {
		ran = true
		_, err := uf.Value()
		if !errors.Is(err, wantErr) {
			t.Fatalf("recover saw unexpected error: %v", err)
		}
		return 7, nil
	})
	v, err := g.Value()
	if err != nil {
		t.Fatalf("unexpected error after recover: %v", err)
	}
	if v != 7 {
		t.Fatalf("expected 7, got %d", v)
	}
	if !ran {
		t.Fatal("Recover continuation must run on the error path")
	}

	ran = false
	h := Async(executor.Immediate, func() (int, error) { return 9, nil })
	h2 := Recover(h, executor.Immediate, func(uf Future[int]) (int, error) {
		ran = true
		v, err := uf.Value()
		if err != nil {
			t.Fatalf("recover saw unexpected error on the value path: %v", err)
		}
		return v, nil
	})
	v2, err2 := h2.Value()
	if err2 != nil || v2 != 9 {
		t.Fatalf("expected (9, nil), got (%d, %v)", v2, err2)
	}
	if !ran {
		t.Fatal("Recover continuation must run on the value path too")
	}
}

func TestThenComposeFlattensInnerFuture(t *testing.T) {
	outer := Async(executor.Immediate, func() (int, error) { return 2, nil })
	flattened := ThenCompose(outer, executor.Immediate, func(v int) (Future[string], error) {
		return Async(executor.Immediate, func() (string, error) {
			return fmt.Sprintf("value=%d", v*10), nil
		}), nil
	})

	v, err := flattened.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "value=20" {
		t.Fatalf("expected flattened value, got %q", v)
	}
}

func TestMultiConsumerFanOut(t *testing.T) {
	p, f := NewPromise[int]()

	g1 := Then(f, executor.Immediate, func(v int) (int, error) { return v + 1, nil })
	g2 := Then(f, executor.Immediate, func(v int) (int, error) { return v * 2, nil })

	p.SetValue(10)

	v1, err1 := g1.Value()
	v2, err2 := g2.Value()
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v %v", err1, err2)
	}
	if v1 != 11 || v2 != 20 {
		t.Fatalf("expected (11, 20), got (%d, %d)", v1, v2)
	}
}

func TestPromiseDiscardBreaksPromise(t *testing.T) {
	p, f := NewPromise[int]()
	p.Discard()

	_, err := f.Value()
	if !ferrors.IsBrokenPromise(err) {
		t.Fatalf("expected broken promise error, got %v", err)
	}
}

func TestWhenAll2(t *testing.T) {
	fa := Async(executor.Immediate, func() (int, error) { return 1, nil })
	fb := Async(executor.Immediate, func() (string, error) { return "x", nil })

	joined := WhenAll2(executor.Immediate, func(a int, b string) (string, error) {
		return fmt.Sprintf("%d-%s", a, b), nil
	}, fa, fb)
	got, err := joined.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "1-x" {
		t.Fatalf("unexpected combined value: %q", got)
	}
}

func TestWhenAllSlice(t *testing.T) {
	fs := []Future[int]{
		Ready(executor.Immediate, 1),
		Ready(executor.Immediate, 2),
		Ready(executor.Immediate, 3),
		Ready(executor.Immediate, 5),
	}
	sum := func(vs []int) (int, error) {
		total := 0
		for _, v := range vs {
			total += v
		}
		return total, nil
	}
	joined := WhenAllSlice(executor.Immediate, sum, fs)
	got, err := joined.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 11 {
		t.Fatalf("expected sum 11, got %d", got)
	}
}

func TestWhenAllSliceEmptyRangeRunsCombiner(t *testing.T) {
	ran := false
	joined := WhenAllSlice(executor.Immediate, func(vs []int) (int, error) {
		ran = true
		return len(vs), nil
	}, nil)
	got, err := joined.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatal("combiner must run for an empty input range")
	}
	if got != 0 {
		t.Fatalf("expected combiner to see an empty collection, got %d", got)
	}
}

func TestWhenAllSlicePropagatesError(t *testing.T) {
	wantErr := errors.New("bad")
	fs := []Future[int]{
		Ready(executor.Immediate, 1),
		ReadyErr[int](executor.Immediate, wantErr),
	}
	ran := false
	combiner := func(vs []int) (int, error) {
		ran = true
		return 0, nil
	}
	_, err := WhenAllSlice(executor.Immediate, combiner, fs).Value()
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if ran {
		t.Fatal("combiner must not run when an input future errors")
	}
}

func TestCollectErrorsFoldsEveryRejection(t *testing.T) {
	err1 := errors.New("first")
	err2 := errors.New("second")
	fs := []Future[int]{
		Ready(executor.Immediate, 1),
		ReadyErr[int](executor.Immediate, err1),
		ReadyErr[int](executor.Immediate, err2),
	}
	err := CollectErrors(fs)
	if err == nil {
		t.Fatal("expected a non-nil aggregate error")
	}
	if !errors.Is(err, err1) || !errors.Is(err, err2) {
		t.Fatalf("expected aggregate to wrap both errors, got %v", err)
	}
}

func TestCollectErrorsNilWhenAllResolve(t *testing.T) {
	fs := []Future[int]{
		Ready(executor.Immediate, 1),
		Ready(executor.Immediate, 2),
	}
	if err := CollectErrors(fs); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestThenInheritUsesUpstreamExecutor(t *testing.T) {
	f := Async(executor.Immediate, func() (int, error) { return 1, nil })
	g := ThenInherit(f, func(v int) (int, error) { return v + 1, nil })
	v, err := g.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 2 {
		t.Fatalf("expected 2, got %d", v)
	}
}

func TestRecoverInheritUsesUpstreamExecutor(t *testing.T) {
	wantErr := errors.New("boom")
	f := Async(executor.Immediate, func() (int, error) { return 0, wantErr })
	g := RecoverInherit(f, func(uf Future[int]) (int, error) {
		if _, err := uf.Value(); !errors.Is(err, wantErr) {
			t.Fatalf("unexpected upstream error: %v", err)
		}
		return 5, nil
	})
	v, err := g.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 5 {
		t.Fatalf("expected 5, got %d", v)
	}
}

// TestAbandonedPromiseBreaksFuture exercises the GC-driven fallback rather
// than the deterministic Discard path: a Promise with no surviving handle
// must eventually resolve its Future to broken-promise on its own.
func TestAbandonedPromiseBreaksFuture(t *testing.T) {
	p, f := NewPromise[int]()
	p = Promise[int]{} // drop the only remaining reference to the handle
	_ = p

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		runtime.GC()
		if f.IsReady() {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if !f.IsReady() {
		t.Fatal("expected abandoned promise to resolve the future")
	}
	if _, err := f.Value(); !ferrors.IsBrokenPromise(err) {
		t.Fatalf("expected broken promise error, got %v", err)
	}
}

// TestQueuedContinuationSurvivesUpstreamHandleDrop pins down a chain on a
// goroutine-hopping executor where the only Future handle referring to the
// upstream is dropped right after Then attaches a continuation to it — the
// realistic shape of `g := Then(f, executor.Go, fn)` once the caller never
// holds onto f again. The continuation already queued on the upstream
// state must keep it alive; g must resolve to its real value, not
// broken-promise.
func TestQueuedContinuationSurvivesUpstreamHandleDrop(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := Async(executor.Go, func() (int, error) {
		close(started)
		<-release
		return 41, nil
	})
	g := Then(f, executor.Go, func(v int) (int, error) { return v + 1, nil })

	<-started
	f = Future[int]{} // drop the only handle the caller held on upstream
	for i := 0; i < 5; i++ {
		runtime.GC()
		time.Sleep(20 * time.Millisecond)
	}
	close(release)

	v, err := g.Value()
	if err != nil {
		t.Fatalf("expected the chain to survive the dropped upstream handle, got error: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestReadyRoundTripThroughIdentity(t *testing.T) {
	f := Ready(executor.Immediate, 42)
	g := ThenInherit(f, func(v int) (int, error) { return v, nil })
	v, err := g.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestErrorPropagationThroughChain(t *testing.T) {
	wantErr := errors.New("boom")
	f := Async(executor.Immediate, func() (int, error) { return 0, wantErr })

	thenRan := false
	g := Then(f, executor.Immediate, func(int) (int, error) {
		thenRan = true
		return 0, nil
	})
	h := Recover(g, executor.Immediate, func(uf Future[int]) (int, error) {
		if _, err := uf.Value(); !errors.Is(err, wantErr) {
			t.Fatalf("recover saw wrong error: %v", err)
		}
		return -1, nil
	})

	v, err := h.Value()
	if err != nil {
		t.Fatalf("unexpected error after recover: %v", err)
	}
	if v != -1 {
		t.Fatalf("expected -1, got %d", v)
	}
	if thenRan {
		t.Fatal("Then callable must be skipped when the upstream erred")
	}
}

func TestPanicInCallbackBecomesError(t *testing.T) {
	f := Async(executor.Immediate, func() (int, error) { panic("kaboom") })
	_, err := f.Value()
	if err == nil {
		t.Fatal("expected a panicking root task to resolve the future to an error")
	}
	var eh ferrors.ExceptionHandle
	if !errors.As(err, &eh) {
		t.Fatalf("expected an ExceptionHandle, got %T: %v", err, err)
	}

	g := Then(Ready(executor.Immediate, 1), executor.Immediate, func(int) (int, error) {
		panic("continuation kaboom")
	})
	if _, err := g.Value(); !errors.As(err, &eh) {
		t.Fatalf("expected a continuation panic to surface as an ExceptionHandle, got %v", err)
	}
}

func TestThenComposeFlattensTransitively(t *testing.T) {
	f := Ready(executor.Immediate, 1)
	g := ThenCompose(f, executor.Immediate, func(v int) (Future[int], error) {
		inner := Ready(executor.Immediate, v+1)
		return ThenCompose(inner, executor.Immediate, func(w int) (Future[int], error) {
			return Ready(executor.Immediate, w*10), nil
		}), nil
	})

	v, err := g.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 20 {
		t.Fatalf("expected doubly nested reduction to flatten to 20, got %d", v)
	}
}

func TestThenComposePropagatesInnerError(t *testing.T) {
	wantErr := errors.New("inner boom")
	f := Ready(executor.Immediate, 1)
	g := ThenCompose(f, executor.Immediate, func(int) (Future[int], error) {
		return ReadyErr[int](executor.Immediate, wantErr), nil
	})
	if _, err := g.Value(); !errors.Is(err, wantErr) {
		t.Fatalf("expected inner future's error, got %v", err)
	}
}

func TestTakeAndExceptionAreNonBlocking(t *testing.T) {
	p, f := NewPromise[int]()
	if _, _, ready := f.Take(); ready {
		t.Fatal("Take must report not-ready while the promise is pending")
	}
	if err := f.Exception(); err != nil {
		t.Fatalf("Exception must be nil while pending, got %v", err)
	}
	if f.IsReady() {
		t.Fatal("IsReady must be false while pending")
	}

	p.SetValue(3)
	v, err, ready := f.Take()
	if !ready || err != nil || v != 3 {
		t.Fatalf("expected (3, nil, true), got (%d, %v, %v)", v, err, ready)
	}
	if err := f.Exception(); err != nil {
		t.Fatalf("Exception must stay nil for a value result, got %v", err)
	}

	wantErr := errors.New("boom")
	p2, f2 := NewPromise[int]()
	p2.SetError(wantErr)
	if err := f2.Exception(); !errors.Is(err, wantErr) {
		t.Fatalf("expected the stored error from Exception, got %v", err)
	}
	if _, err, ready := f2.Take(); !ready || !errors.Is(err, wantErr) {
		t.Fatalf("expected Take to surface the stored error, got (%v, %v)", err, ready)
	}
}

func TestPromiseSecondFulfillIsNoOp(t *testing.T) {
	p, f := NewPromise[int]()
	p.SetValue(1)
	p.SetValue(2)
	p.SetError(errors.New("late"))

	v, err := f.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1 {
		t.Fatalf("first fulfillment must win, got %d", v)
	}
}

func TestWhenAll2PropagatesError(t *testing.T) {
	wantErr := errors.New("bad")
	fa := Ready(executor.Immediate, 1)
	fb := ReadyErr[string](executor.Immediate, wantErr)

	ran := false
	joined := WhenAll2(executor.Immediate, func(int, string) (int, error) {
		ran = true
		return 0, nil
	}, fa, fb)
	if _, err := joined.Value(); !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if ran {
		t.Fatal("combiner must not run when an input future errors")
	}
}

func TestWhenAll3(t *testing.T) {
	fa := Ready(executor.Immediate, 1)
	fb := Ready(executor.Immediate, "x")
	fc := Ready(executor.Immediate, true)

	joined := WhenAll3(executor.Immediate, func(a int, b string, c bool) (string, error) {
		return fmt.Sprintf("%d-%s-%v", a, b, c), nil
	}, fa, fb, fc)
	got, err := joined.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "1-x-true" {
		t.Fatalf("unexpected combined value: %q", got)
	}
}

func TestWhenAnyResolvesWithFirst(t *testing.T) {
	p1, f1 := NewPromise[int]()
	p2, f2 := NewPromise[int]()

	any := WhenAny([]Future[int]{f1, f2})
	p2.SetValue(5)

	v, err := any.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 5 {
		t.Fatalf("expected 5 from the first resolved input, got %d", v)
	}
	p1.SetValue(1)
}

func TestPackageInvokeFulfillsFuture(t *testing.T) {
	invoke, f := Package(executor.Immediate, func(v int) (int, error) { return v * 2, nil })
	if f.IsReady() {
		t.Fatal("packaged future must stay pending until invoked")
	}
	invoke(21)
	v, err := f.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

// TestDetachedChainRunsWithoutHandles drops every handle on a still-running
// chain after detaching it; the chain's side effect must still happen.
func TestDetachedChainRunsWithoutHandles(t *testing.T) {
	done := make(chan int, 1)
	release := make(chan struct{})
	f := Async(executor.Go, func() (int, error) {
		<-release
		return 41, nil
	})
	g := Then(f, executor.Go, func(v int) (int, error) {
		done <- v + 1
		return v + 1, nil
	})
	g.Detach()
	f, g = Future[int]{}, Future[int]{}
	_, _ = f, g

	for i := 0; i < 3; i++ {
		runtime.GC()
		time.Sleep(20 * time.Millisecond)
	}
	close(release)

	select {
	case v := <-done:
		if v != 42 {
			t.Fatalf("expected 42, got %d", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("detached chain did not run to completion")
	}
}

// TestJoinsDoNotOccupyBoundedExecutor runs both the join and its inputs on
// a single-worker pool. A join that held the worker while waiting for its
// inputs would starve the very continuations it is waiting on; the
// counting joins submit nothing to the pool until every input is resolved.
func TestJoinsDoNotOccupyBoundedExecutor(t *testing.T) {
	pool := executor.NewPoolExecutor(executor.WithName("join-test"), executor.WithMaxWorkers(1))

	p, seed := NewPromise[int]()
	f1 := Then(seed, pool, func(v int) (int, error) { return v + 1, nil })
	f2 := Then(seed, pool, func(v int) (int, error) { return v + 2, nil })

	pair := WhenAll2(pool, func(a, b int) (int, error) { return a + b, nil }, f1, f2)
	all := WhenAllSlice(pool, func(vs []int) (int, error) {
		total := 0
		for _, v := range vs {
			total += v
		}
		return total, nil
	}, []Future[int]{f1, f2})

	p.SetValue(10)

	done := make(chan struct{})
	var pairV, allV int
	var pairErr, allErr error
	go func() {
		pairV, pairErr = pair.Value()
		allV, allErr = all.Value()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("join starved the bounded executor")
	}

	if pairErr != nil || pairV != 23 {
		t.Fatalf("expected (23, nil), got (%d, %v)", pairV, pairErr)
	}
	if allErr != nil || allV != 23 {
		t.Fatalf("expected (23, nil), got (%d, %v)", allV, allErr)
	}
}

type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) Debug(_ context.Context, msg string, _ ...flog.Attr) {
	l.mu.Lock()
	l.msgs = append(l.msgs, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Warn(_ context.Context, msg string, _ ...flog.Attr) {
	l.mu.Lock()
	l.msgs = append(l.msgs, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) contains(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.msgs {
		if m == msg {
			return true
		}
	}
	return false
}

func TestBrokenPromiseLogsDebug(t *testing.T) {
	log := &recordingLogger{}
	p, f := NewPromise[int](WithLogger(log))
	p.Discard()

	if _, err := f.Value(); !ferrors.IsBrokenPromise(err) {
		t.Fatalf("expected broken promise error, got %v", err)
	}
	if !log.contains("future: chain resolved to broken promise") {
		t.Fatal("expected a Debug diagnostic when the chain resolved to broken promise")
	}
}
