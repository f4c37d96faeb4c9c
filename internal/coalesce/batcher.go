package coalesce

import (
	"sort"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Summary is one flushed batch: everything accumulated for a correlation
// key within its debounce window.
type Summary struct {
	BatchID string
	Key     string
	Label   string
	Count   int
	Kinds   []string
	FirstAt time.Time
}

type batch struct {
	id      string
	label   string
	count   int
	kinds   map[string]struct{}
	firstAt time.Time
	timer   *time.Timer
}

// Batcher collapses high-frequency events into one grouped summary per
// correlation key. The flush timer runs from the first event of the batch,
// a fixed delay, not a sliding window. Stop flushes everything pending so
// shutdown never drops a batch.
type Batcher struct {
	mu      sync.Mutex
	delay   time.Duration
	batches map[string]*batch
	flush   func(Summary)
	stopped bool
}

func NewBatcher(delay time.Duration, flush func(Summary)) *Batcher {
	return &Batcher{
		delay:   delay,
		batches: make(map[string]*batch),
		flush:   flush,
	}
}

// Add folds one event into the batch for key. Label is carried from the
// first event for rendering; subKind lands in the batch's distinct-kind set.
func (b *Batcher) Add(key, label, subKind string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return
	}

	bt, ok := b.batches[key]
	if !ok {
		bt = &batch{
			id:      gonanoid.Must(),
			label:   label,
			kinds:   make(map[string]struct{}),
			firstAt: time.Now(),
		}
		bt.timer = time.AfterFunc(b.delay, func() { b.fire(key) })
		b.batches[key] = bt
	}

	bt.count++
	if subKind != "" {
		bt.kinds[subKind] = struct{}{}
	}
}

func (b *Batcher) fire(key string) {
	b.mu.Lock()
	bt, ok := b.batches[key]
	if ok {
		delete(b.batches, key)
	}
	b.mu.Unlock()

	if ok {
		b.flush(summarize(key, bt))
	}
}

// Stop cancels all timers and flushes every pending batch immediately.
func (b *Batcher) Stop() {
	b.mu.Lock()
	b.stopped = true
	pending := make(map[string]*batch, len(b.batches))
	for key, bt := range b.batches {
		bt.timer.Stop()
		pending[key] = bt
	}
	b.batches = make(map[string]*batch)
	b.mu.Unlock()

	for key, bt := range pending {
		b.flush(summarize(key, bt))
	}
}

// PendingCount reports how many batches are waiting on their timers.
func (b *Batcher) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.batches)
}

func summarize(key string, bt *batch) Summary {
	kinds := make([]string, 0, len(bt.kinds))
	for k := range bt.kinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	return Summary{
		BatchID: bt.id,
		Key:     key,
		Label:   bt.label,
		Count:   bt.count,
		Kinds:   kinds,
		FirstAt: bt.firstAt,
	}
}
