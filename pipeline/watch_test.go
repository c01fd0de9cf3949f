package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestWatcherLoadsNewCSV(t *testing.T) {
	target := sqliteTarget(t)
	dir := t.TempDir()

	type load struct {
		stats Stats
		err   error
	}
	loads := make(chan load, 4)
	w := NewWatcher(NewIngester(nil, nil, zaptest.NewLogger(t)), zaptest.NewLogger(t))
	w.Settle = 50 * time.Millisecond
	w.OnLoad = func(s Stats, err error) {
		select {
		case loads <- load{s, err}:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx, dir, Job{Table: "incoming", Target: target}) }()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "batch.csv"), []byte("id,age\n1,64\n2,50\n"), 0o600))

	select {
	case l := <-loads:
		require.NoError(t, l.err)
		assert.Equal(t, 2, l.stats.Rows)
		assert.Equal(t, filepath.Join(dir, "batch.csv"), l.stats.Source)
	case <-time.After(5 * time.Second):
		t.Fatal("csv was not loaded")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestSettleQueueDropsFiredTimerOnRetouch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := newSettleQueue(ctx, 10*time.Millisecond)
	defer q.stop()

	q.touch("batch.csv")
	// let the first timer fire and block on delivery
	time.Sleep(50 * time.Millisecond)
	q.touch("batch.csv")

	var taken int
	deadline := time.After(500 * time.Millisecond)
	for done := false; !done; {
		select {
		case e := <-q.ready:
			if q.take(e) {
				taken++
			}
		case <-deadline:
			done = true
		}
	}
	assert.Equal(t, 1, taken)
	assert.Empty(t, q.pending)
}

func TestSettleQueueCoalescesQuickEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := newSettleQueue(ctx, 50*time.Millisecond)
	defer q.stop()

	for i := 0; i < 5; i++ {
		q.touch("batch.csv")
	}
	select {
	case e := <-q.ready:
		assert.True(t, q.take(e))
		assert.Equal(t, "batch.csv", e.name)
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery")
	}
	select {
	case <-q.ready:
		t.Fatal("second delivery")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	w := NewWatcher(NewIngester(nil, nil, nil), nil)
	err := w.Watch(context.Background(), filepath.Join(t.TempDir(), "absent"), Job{})
	assert.Error(t, err)
}

func TestIsCSV(t *testing.T) {
	assert.True(t, isCSV("/x/part-00000.csv"))
	assert.True(t, isCSV("EXPORT.CSV"))
	assert.False(t, isCSV("part-00000.csv.tmp"))
	assert.False(t, isCSV("_SUCCESS"))
}
