package sequencer

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeHandle records every call made by the sequencer.
type fakeHandle struct {
	id     int
	req    Request
	events Events
	p      *fakeProvider
}

func (h *fakeHandle) Play()    { h.p.record("play", h) }
func (h *fakeHandle) Pause()   { h.p.record("pause", h) }
func (h *fakeHandle) Stop()    { h.p.record("stop", h) }
func (h *fakeHandle) Release() { h.p.record("release", h) }

// fakeProvider hands out fakeHandles; tests fire their events explicitly.
type fakeProvider struct {
	mu      sync.Mutex
	log     []string
	handles []*fakeHandle
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{}
}

func (p *fakeProvider) Acquire(req Request, events Events) Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	h := &fakeHandle{id: len(p.handles) + 1, req: req, events: events, p: p}
	p.handles = append(p.handles, h)
	p.log = append(p.log, fmt.Sprintf("acquire:%d:verse=%d", h.id, req.Item))
	return h
}

func (p *fakeProvider) record(op string, h *fakeHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log = append(p.log, fmt.Sprintf("%s:%d", op, h.id))
}

func (p *fakeProvider) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.log))
	copy(out, p.log)
	return out
}

func (p *fakeProvider) resetCalls() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log = nil
}

func (p *fakeProvider) count(prefix string) int {
	n := 0
	for _, c := range p.calls() {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (p *fakeProvider) acquired() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handles)
}

func (p *fakeProvider) last() *fakeHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.handles) == 0 {
		return nil
	}
	return p.handles[len(p.handles)-1]
}

func (p *fakeProvider) handle(id int) *fakeHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handles[id-1]
}

// manualScheduler runs scheduled tasks only when the test fires them.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	delay     time.Duration
	fn        func()
	cancelled bool
	fired     bool
}

func (m *manualScheduler) AfterFunc(d time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTask{delay: d, fn: fn}
	m.tasks = append(m.tasks, t)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		t.cancelled = true
	}
}

// Fire runs every pending, non-cancelled task and returns how many ran.
func (m *manualScheduler) Fire() int {
	return m.fire(false)
}

// FireIgnoringCancel also runs cancelled tasks, simulating a timer that
// fired just before it was cancelled.
func (m *manualScheduler) FireIgnoringCancel() int {
	return m.fire(true)
}

func (m *manualScheduler) fire(ignoreCancel bool) int {
	m.mu.Lock()
	var due []*manualTask
	for _, t := range m.tasks {
		if t.fired || (t.cancelled && !ignoreCancel) {
			continue
		}
		t.fired = true
		due = append(due, t)
	}
	m.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
	return len(due)
}

// Pending returns the number of tasks that would run on Fire.
func (m *manualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.fired && !t.cancelled {
			n++
		}
	}
	return n
}

func (m *manualScheduler) lastDelay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tasks) == 0 {
		return 0
	}
	return m.tasks[len(m.tasks)-1].delay
}

type harness struct {
	t     *testing.T
	seq   *Sequencer
	p     *fakeProvider
	sched *manualScheduler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	p := newFakeProvider()
	sched := &manualScheduler{}
	seq := New(p, Config{
		RetryDelay:  time.Second,
		DefaultSpan: 5,
		EventBuffer: 4096,
		Scheduler:   sched,
	})
	t.Cleanup(seq.Close)
	return &harness{t: t, seq: seq, p: p, sched: sched}
}

// open selects a collection and installs the given range.
func (h *harness) open(itemCount, start, end int) {
	h.t.Helper()
	require.NoError(h.t, h.seq.SelectCollection(1, itemCount))
	require.NoError(h.t, h.seq.SetRange(start, end))
	h.drain()
}

// play issues PlayPause and completes the load of the acquired handle.
func (h *harness) play() {
	h.t.Helper()
	require.NoError(h.t, h.seq.PlayPause())
	h.loadLast()
}

func (h *harness) loadLast() {
	h.t.Helper()
	last := h.p.last()
	require.NotNil(h.t, last)
	last.events.Loaded()
	h.flush()
}

// endLast completes playback of the newest handle and loads its successor, if any.
func (h *harness) endLast() {
	h.t.Helper()
	before := h.p.acquired()
	h.p.last().events.PlaybackEnded()
	h.flush()
	if h.p.acquired() > before {
		h.loadLast()
	}
}

// flush waits until every queued callback has been processed.
func (h *harness) flush() Status {
	return h.seq.Status()
}

func (h *harness) drain() []Event {
	var out []Event
	for {
		select {
		case e := <-h.seq.Events():
			out = append(out, e)
		default:
			return out
		}
	}
}

func countEvents(events []Event, t EventType) int {
	n := 0
	for _, e := range events {
		if e.Type == t {
			n++
		}
	}
	return n
}
