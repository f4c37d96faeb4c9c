package coalesce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type summaryCollector struct {
	mu        sync.Mutex
	summaries []Summary
}

func (c *summaryCollector) collect(s Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summaries = append(c.summaries, s)
}

func (c *summaryCollector) all() []Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Summary, len(c.summaries))
	copy(out, c.summaries)
	return out
}

func TestBatcherCollapsesBurst(t *testing.T) {
	c := &summaryCollector{}
	b := NewBatcher(50*time.Millisecond, c.collect)

	for i := 0; i < 5; i++ {
		b.Add("loot|76561198000000001|76561198000000002", "Ragnar looted Bjorn", "crate")
	}
	b.Add("loot|76561198000000001|76561198000000002", "Ragnar looted Bjorn", "chest")
	require.Equal(t, 1, b.PendingCount())

	require.Eventually(t, func() bool { return len(c.all()) == 1 }, time.Second, 5*time.Millisecond)

	got := c.all()[0]
	assert.Equal(t, 6, got.Count)
	assert.Equal(t, "Ragnar looted Bjorn", got.Label)
	assert.Equal(t, []string{"chest", "crate"}, got.Kinds)
	assert.NotEmpty(t, got.BatchID)
	assert.Equal(t, 0, b.PendingCount())
}

func TestBatcherSeparatesKeys(t *testing.T) {
	c := &summaryCollector{}
	b := NewBatcher(30*time.Millisecond, c.collect)

	b.Add("raid|a|b", "A raided B", "wall")
	b.Add("raid|a|c", "A raided C", "door")
	require.Equal(t, 2, b.PendingCount())

	require.Eventually(t, func() bool { return len(c.all()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestBatcherTimerRunsFromFirstEvent(t *testing.T) {
	c := &summaryCollector{}
	b := NewBatcher(80*time.Millisecond, c.collect)

	b.Add("build|x", "X building", "wall")
	time.Sleep(50 * time.Millisecond)
	// A late event must not push the flush out; the window is fixed.
	b.Add("build|x", "X building", "wall")

	require.Eventually(t, func() bool { return len(c.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, c.all()[0].Count)
}

func TestBatcherStopFlushesPending(t *testing.T) {
	c := &summaryCollector{}
	b := NewBatcher(time.Hour, c.collect)

	b.Add("loot|a|b", "A looted B", "crate")
	b.Add("raid|a|b", "A raided B", "wall")
	b.Stop()

	got := c.all()
	require.Len(t, got, 2)
	assert.Equal(t, 0, b.PendingCount())

	// Events after Stop are dropped, not queued forever.
	b.Add("loot|a|b", "A looted B", "crate")
	assert.Equal(t, 0, b.PendingCount())
}

func TestRepeatSuppressorThreshold(t *testing.T) {
	var mu sync.Mutex
	var notified []int
	s := NewRepeatSuppressor(100*time.Millisecond, 3, func(subject string, count int) {
		mu.Lock()
		defer mu.Unlock()
		notified = append(notified, count)
	})

	now := time.Now()
	for i := 0; i < 3; i++ {
		assert.True(t, s.Allow("ragnar", now), "occurrence %d is under the threshold", i+1)
	}
	assert.False(t, s.Allow("ragnar", now), "past the threshold the feed goes quiet")
	assert.False(t, s.Allow("ragnar", now))

	// An unrelated subject has its own counter.
	assert.True(t, s.Allow("bjorn", now))

	// One summary for the whole suppressed run, with the full count.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(notified) == 1
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, 5, notified[0])
	mu.Unlock()

	// After the window expires the subject starts clean.
	assert.True(t, s.Allow("ragnar", now.Add(time.Second)))
}

func TestRepeatSuppressorWindowResets(t *testing.T) {
	s := NewRepeatSuppressor(time.Minute, 3, func(string, int) {
		t.Error("no summary expected when the threshold is never crossed")
	})

	now := time.Now()
	assert.True(t, s.Allow("ragnar", now))
	assert.True(t, s.Allow("ragnar", now.Add(30*time.Second)))
	assert.True(t, s.Allow("ragnar", now.Add(30*time.Second)))

	// Outside the window the count restarts, so three more pass.
	later := now.Add(2 * time.Minute)
	assert.True(t, s.Allow("ragnar", later))
	assert.True(t, s.Allow("ragnar", later))
	assert.True(t, s.Allow("ragnar", later))
}

func TestRepeatSuppressorStopEmitsSummaries(t *testing.T) {
	var mu sync.Mutex
	notified := make(map[string]int)
	s := NewRepeatSuppressor(time.Hour, 2, func(subject string, count int) {
		mu.Lock()
		defer mu.Unlock()
		notified[subject] = count
	})

	now := time.Now()
	for i := 0; i < 4; i++ {
		s.Allow("ragnar", now)
	}
	s.Allow("bjorn", now) // never suppressed, no summary owed

	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, notified, 1)
	assert.Equal(t, 4, notified["ragnar"])
}
