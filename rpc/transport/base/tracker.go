package base

import (
	"github.com/ValentinKolb/dSock/lib/util"
	"github.com/ValentinKolb/dSock/rpc/common"
	"github.com/ValentinKolb/dSock/rpc/transport"
	"sync"
	"time"
)

// PendingRequest is the bookkeeping of one request awaiting its response
type PendingRequest struct {
	UID      string
	Callback transport.ResponseHandler
	SentAt   time.Time
	IsSent   bool
}

// requestTracker keeps the in-flight requests of one client connection.
//
// Requests are indexed by uid and ordered by insertion. A single timer is armed
// for the oldest request only: when it fires, every request older than the
// timeout is evicted and the timer is re-armed for the new oldest request.
// Since all requests share the same timeout the oldest request always has the
// earliest deadline.
type requestTracker struct {
	mu      sync.Mutex
	timeout time.Duration
	index   *util.MapHeap[string, *PendingRequest]
	nextSeq uint64
	timer   *time.Timer
	timerID uint64 // identifies the currently armed timer
	now     func() time.Time
}

func newRequestTracker(timeout time.Duration) *requestTracker {
	return &requestTracker{
		timeout: timeout,
		index:   util.NewMapHeap[string, *PendingRequest](),
		now:     time.Now,
	}
}

// Track adds a request and arms the timeout timer if it is not running
func (t *requestTracker) Track(req *PendingRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if req.SentAt.IsZero() {
		req.SentAt = t.now()
	}
	t.nextSeq++
	t.index.AddItem(req.UID, t.nextSeq, req)
	pendingRequests.Inc()

	if t.timer == nil {
		t.armLocked()
	}
}

// Resolve matches a response to its request. The request is removed and its
// callback invoked with the envelope. It returns false for unknown uids (e.g.
// a late response to a request that already timed out).
func (t *requestTracker) Resolve(env *common.Envelope) bool {
	t.mu.Lock()
	item, ok := t.index.RemoveByKey(env.UID)
	if ok && t.index.Len() == 0 {
		t.stopTimerLocked()
	}
	t.mu.Unlock()

	if !ok {
		return false
	}

	pendingRequests.Dec()
	requestDuration.UpdateDuration(item.Value.SentAt)
	requestsResolved.Inc()
	if item.Value.Callback != nil {
		item.Value.Callback(env, nil)
	}
	return true
}

// IsPending reports whether the request with the given uid is still tracked
func (t *requestTracker) IsPending(uid string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.index.Contains(uid)
}

// MarkSent flags a tracked request as written to the connection
func (t *requestTracker) MarkSent(uid string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if item, ok := t.index.GetByKey(uid); ok {
		item.Value.IsSent = true
	}
}

// Len returns the number of in-flight requests
func (t *requestTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.index.Len()
}

// FailAll removes every request and invokes the callbacks with err, oldest first
func (t *requestTracker) FailAll(err error) int {
	t.mu.Lock()
	items := t.index.Clear()
	t.stopTimerLocked()
	t.mu.Unlock()

	for _, item := range items {
		pendingRequests.Dec()
		if item.Value.Callback != nil {
			item.Value.Callback(nil, err)
		}
	}
	return len(items)
}

// sweep evicts every request that reached the timeout. It runs when the timer with
// the given id fires and does nothing if that timer has been replaced meanwhile.
func (t *requestTracker) sweep(timerID uint64) {
	var expired []*PendingRequest

	t.mu.Lock()
	if timerID != t.timerID || t.timer == nil {
		t.mu.Unlock()
		return
	}
	t.timer = nil

	now := t.now()
	for {
		head, ok := t.index.Peek()
		if !ok {
			break
		}
		if now.Sub(head.Value.SentAt) < t.timeout {
			t.armLocked()
			break
		}
		t.index.PopMin()
		expired = append(expired, head.Value)
	}
	t.mu.Unlock()

	for _, req := range expired {
		pendingRequests.Dec()
		requestTimeouts.Inc()
		Logger.Debugf("Request %s timed out after %s", req.UID, t.timeout)
		if req.Callback != nil {
			req.Callback(nil, common.ErrTimeout)
		}
	}
}

// armLocked schedules the sweep for the deadline of the oldest request
func (t *requestTracker) armLocked() {
	head, ok := t.index.Peek()
	if !ok {
		return
	}

	delay := t.timeout - t.now().Sub(head.Value.SentAt)
	if delay < 0 {
		delay = 0
	}

	t.timerID++
	id := t.timerID
	t.timer = time.AfterFunc(delay, func() { t.sweep(id) })
}

func (t *requestTracker) stopTimerLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	// invalidate a sweep that may already be running
	t.timerID++
}
