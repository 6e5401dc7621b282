package eventlog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memDestination records entries in memory. block, when set, holds every
// write until it is closed.
type memDestination struct {
	mu      sync.Mutex
	entries []Entry
	block   chan struct{}
	fail    error
	closed  bool
}

func (d *memDestination) Write(_ context.Context, e Entry) error {
	if d.block != nil {
		<-d.block
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return d.fail
	}
	d.entries = append(d.entries, e)
	return nil
}

func (d *memDestination) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *memDestination) messages() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.entries))
	for i, e := range d.entries {
		out[i] = e.Message
	}
	return out
}

func TestEntry_RecordFormat(t *testing.T) {
	ts := time.Date(2024, 10, 21, 9, 15, 0, 123_000_000, time.Local)
	line, err := Entry{Source: "AO", Message: `tokens sent: "Tokens.csv"`, Time: ts}.Line()
	require.NoError(t, err)

	assert.Equal(t, byte('\n'), line[len(line)-1])
	assert.JSONEq(t,
		`{"Source":"AO","message":"tokens sent: \"Tokens.csv\"","time":"2024-10-21 09:15:00.123"}`,
		string(line),
	)

	var back Entry
	require.NoError(t, json.Unmarshal(line, &back))
	assert.Equal(t, "AO", back.Source)
	assert.True(t, back.Time.Equal(ts))
}

func TestSink_OrderAcrossProducers(t *testing.T) {
	dest := &memDestination{}
	sink := NewSink(dest)
	sink.Start()

	aDone := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sink.Log("A")
		close(aDone)
	}()
	go func() {
		defer wg.Done()
		<-aDone
		sink.Log("B")
	}()
	wg.Wait()

	require.NoError(t, sink.Stop(context.Background()))
	assert.Equal(t, []string{"A", "B"}, dest.messages())
}

func TestSink_StopDrainsPending(t *testing.T) {
	dest := &memDestination{block: make(chan struct{})}
	sink := NewSink(dest, WithQueueCapacity(2))
	sink.Start()

	const k = 50
	for i := 0; i < k; i++ {
		sink.Logf("entry %d", i)
	}

	stopped := make(chan error, 1)
	go func() { stopped <- sink.Stop(context.Background()) }()

	// Entries logged after the stop signal are rejected, not written.
	require.Eventually(t, func() bool {
		return sink.queue.Closed()
	}, time.Second, time.Millisecond)
	sink.Log("late")

	close(dest.block)
	require.NoError(t, <-stopped)

	got := dest.messages()
	require.Len(t, got, k)
	for i, msg := range got {
		assert.Equal(t, "entry "+strconv.Itoa(i), msg)
	}
	assert.True(t, dest.closed)
	assert.Equal(t, 0, sink.Pending())
}

func TestSink_StopWithoutStart(t *testing.T) {
	dest := &memDestination{}
	sink := NewSink(dest)
	sink.Log("one")
	sink.Log("two")

	require.NoError(t, sink.Stop(context.Background()))
	assert.Equal(t, []string{"one", "two"}, dest.messages())
	assert.ErrorIs(t, sink.Enqueue(Entry{Message: "three"}), ErrClosed)
}

func TestSink_DestinationErrorIsNotFatal(t *testing.T) {
	dest := &memDestination{fail: errors.New("disk full")}
	sink := NewSink(dest)
	sink.Start()

	sink.Log("lost")
	require.Eventually(t, func() bool { return sink.Pending() == 0 }, time.Second, time.Millisecond)

	dest.mu.Lock()
	dest.fail = nil
	dest.mu.Unlock()

	sink.Log("kept")
	require.NoError(t, sink.Stop(context.Background()))
	assert.Equal(t, []string{"kept"}, dest.messages())
}

func TestSink_UsesClockAndSource(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 10, 21, 9, 15, 0, 0, time.Local))

	dest := &memDestination{}
	sink := NewSink(dest, WithClock(mock), WithSource("TEST"))
	sink.Log("hello")
	require.NoError(t, sink.Stop(context.Background()))

	require.Len(t, dest.entries, 1)
	assert.Equal(t, "TEST", dest.entries[0].Source)
	assert.True(t, dest.entries[0].Time.Equal(mock.Now()))
}

func TestFileDestination_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "controller.json")

	for _, msg := range []string{"first", "second"} {
		dest, err := OpenFile(path)
		require.NoError(t, err)
		sink := NewSink(dest)
		sink.Start()
		sink.Log(msg)
		require.NoError(t, sink.Stop(context.Background()))
	}

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var got []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		assert.Equal(t, DefaultSource, e.Source)
		got = append(got, e.Message)
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestMultiDestination_ContinuesPastFailure(t *testing.T) {
	bad := &memDestination{fail: errors.New("unwritable")}
	good := &memDestination{}
	multi := MultiDestination{bad, good}

	err := multi.Write(context.Background(), Entry{Message: "x"})
	assert.Error(t, err)
	assert.Equal(t, []string{"x"}, good.messages())
	assert.NoError(t, multi.Close())
	assert.True(t, bad.closed)
	assert.True(t, good.closed)
}

func TestWriterDestination(t *testing.T) {
	var buf bytes.Buffer
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 10, 21, 9, 15, 0, 5_000_000, time.Local))

	sink := NewSink(NewWriterDestination(&buf), WithClock(mock))
	sink.Log("Sent connection message")
	require.NoError(t, sink.Stop(context.Background()))

	assert.Equal(t,
		`{"Source":"AO","message":"Sent connection message","time":"2024-10-21 09:15:00.005"}`+"\n",
		buf.String(),
	)
}
