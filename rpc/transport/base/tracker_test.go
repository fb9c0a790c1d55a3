package base

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/dSock/rpc/common"
	"sync"
	"testing"
	"time"
)

// callbackRecorder collects the results delivered to request callbacks
type callbackRecorder struct {
	mu      sync.Mutex
	results []string
	done    chan struct{}
	want    int
}

func newCallbackRecorder(want int) *callbackRecorder {
	return &callbackRecorder{done: make(chan struct{}), want: want}
}

func (r *callbackRecorder) callback(name string) func(*common.Envelope, error) {
	return func(env *common.Envelope, err error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if err != nil {
			r.results = append(r.results, fmt.Sprintf("%s:%v", name, err))
		} else {
			r.results = append(r.results, fmt.Sprintf("%s:%s", name, env.UID))
		}
		if len(r.results) == r.want {
			close(r.done)
		}
	}
}

func (r *callbackRecorder) wait(t *testing.T, timeout time.Duration) []string {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(timeout):
		t.Fatalf("Timed out waiting for %d callbacks", r.want)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.results...)
}

func TestTrackerResolve(t *testing.T) {
	tr := newRequestTracker(time.Minute)
	rec := newCallbackRecorder(2)

	tr.Track(&PendingRequest{UID: "a", Callback: rec.callback("a")})
	tr.Track(&PendingRequest{UID: "b", Callback: rec.callback("b")})

	if tr.Len() != 2 {
		t.Fatalf("Expected 2 pending requests, got %d", tr.Len())
	}

	// responses arrive in reverse order
	if !tr.Resolve(&common.Envelope{UID: "b"}) {
		t.Error("Expected b to be resolved")
	}
	if !tr.Resolve(&common.Envelope{UID: "a"}) {
		t.Error("Expected a to be resolved")
	}
	if tr.Resolve(&common.Envelope{UID: "a"}) {
		t.Error("Expected a second response for a to be ignored")
	}

	got := rec.wait(t, time.Second)
	if got[0] != "b:b" || got[1] != "a:a" {
		t.Errorf("Expected callbacks in arrival order, got %v", got)
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.timer != nil {
		t.Error("Expected the timer to be stopped when no request is pending")
	}
}

func TestTrackerTimeout(t *testing.T) {
	tr := newRequestTracker(50 * time.Millisecond)
	rec := newCallbackRecorder(3)

	start := time.Now()
	for _, uid := range []string{"1", "2", "3"} {
		tr.Track(&PendingRequest{UID: uid, Callback: rec.callback(uid)})
	}

	got := rec.wait(t, time.Second)
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Requests timed out too early after %s", elapsed)
	}

	want := []string{"1:Timeout reached", "2:Timeout reached", "3:Timeout reached"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %q at position %d, got %q", want[i], i, got[i])
		}
	}
	if tr.Len() != 0 {
		t.Errorf("Expected no pending requests, got %d", tr.Len())
	}

	// a late response is not matched
	if tr.Resolve(&common.Envelope{UID: "1"}) {
		t.Error("Expected the late response to be ignored")
	}
}

func TestTrackerTimeoutRearmsForNewHead(t *testing.T) {
	tr := newRequestTracker(200 * time.Millisecond)

	errA := make(chan error, 1)
	errB := make(chan error, 1)

	tr.Track(&PendingRequest{UID: "a", Callback: func(_ *common.Envelope, err error) { errA <- err }})
	time.Sleep(120 * time.Millisecond)
	tr.Track(&PendingRequest{UID: "b", Callback: func(_ *common.Envelope, err error) { errB <- err }})

	select {
	case err := <-errA:
		if !errors.Is(err, common.ErrTimeout) {
			t.Errorf("Expected ErrTimeout for a, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Request a did not time out")
	}

	// b is younger and must still be pending
	if !tr.IsPending("b") {
		t.Fatal("Expected b to be pending after a timed out")
	}

	select {
	case err := <-errB:
		if !errors.Is(err, common.ErrTimeout) {
			t.Errorf("Expected ErrTimeout for b, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Request b did not time out")
	}
}

func TestTrackerSharedTimer(t *testing.T) {
	tr := newRequestTracker(time.Minute)

	tr.Track(&PendingRequest{UID: "first"})
	tr.mu.Lock()
	timer, id := tr.timer, tr.timerID
	tr.mu.Unlock()

	for i := 0; i < 100; i++ {
		tr.Track(&PendingRequest{UID: fmt.Sprint(i)})
	}

	tr.mu.Lock()
	if tr.timer != timer || tr.timerID != id {
		t.Error("Expected tracking more requests to keep the armed timer")
	}
	tr.mu.Unlock()

	tr.FailAll(common.ErrStopped)
}

func TestTrackerStaleSweep(t *testing.T) {
	tr := newRequestTracker(time.Minute)
	called := false
	tr.Track(&PendingRequest{UID: "a", Callback: func(*common.Envelope, error) { called = true }})

	tr.mu.Lock()
	staleID := tr.timerID
	tr.mu.Unlock()

	// resolving the only request replaces the timer generation
	tr.Resolve(&common.Envelope{UID: "a"})
	called = false
	tr.Track(&PendingRequest{UID: "b"})

	// b would be expired for any current sweep
	tr.mu.Lock()
	tr.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	tr.mu.Unlock()

	tr.sweep(staleID)
	if called {
		t.Error("Expected a stale sweep to do nothing")
	}
	if !tr.IsPending("b") {
		t.Error("Expected b to survive a stale sweep")
	}
	tr.FailAll(common.ErrStopped)
}

func TestTrackerFailAll(t *testing.T) {
	tr := newRequestTracker(time.Minute)
	rec := newCallbackRecorder(3)

	for _, uid := range []string{"x", "y", "z"} {
		tr.Track(&PendingRequest{UID: uid, Callback: rec.callback(uid)})
	}

	if n := tr.FailAll(common.ErrStopped); n != 3 {
		t.Errorf("Expected 3 failed requests, got %d", n)
	}

	got := rec.wait(t, time.Second)
	want := []string{"x:socket stopped", "y:socket stopped", "z:socket stopped"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %q at position %d, got %q", want[i], i, got[i])
		}
	}
	if tr.Len() != 0 {
		t.Errorf("Expected no pending requests, got %d", tr.Len())
	}
}

func TestTrackerMarkSent(t *testing.T) {
	tr := newRequestTracker(time.Minute)
	req := &PendingRequest{UID: "a"}
	tr.Track(req)

	if req.IsSent {
		t.Error("Expected a new request not to be sent")
	}
	tr.MarkSent("a")
	if !req.IsSent {
		t.Error("Expected the request to be marked as sent")
	}
	tr.MarkSent("unknown") // no-op

	if req.SentAt.IsZero() {
		t.Error("Expected SentAt to be set by Track")
	}
	tr.FailAll(common.ErrStopped)
}
