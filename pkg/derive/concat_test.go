package derive_test

import (
	"testing"

	"github.com/aretw0/ivy/pkg/derive"
	"github.com/aretw0/ivy/pkg/domain"
	"github.com/aretw0/ivy/pkg/reactive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(t *testing.T, h *reactive.Host, id string, values ...any) *reactive.Sequence {
	t.Helper()
	s := h.NewSequence("", id)
	for _, v := range values {
		require.NoError(t, s.Append(v))
	}
	return s
}

func record(events *[]reactive.SeqEvent) reactive.ArrayWatcher {
	return reactive.OnEvent(func(ev reactive.SeqEvent) { *events = append(*events, ev) })
}

func TestConcat_Reindexing(t *testing.T) {
	h := reactive.NewHost()
	a := seq(t, h, "a", 1, 2)
	b := seq(t, h, "b", 3, 4)

	c, err := derive.Concat(a, b)
	require.NoError(t, err)
	defer c.Dispose()
	assert.Equal(t, []any{1, 2, 3, 4}, c.Snapshot())

	var events []reactive.SeqEvent
	_, err = c.WatchArray(record(&events))
	require.NoError(t, err)
	require.Len(t, events, 4, "registration replays every element")
	events = nil

	require.NoError(t, b.Insert(0, 99))
	assert.Equal(t, []reactive.SeqEvent{{Kind: domain.EventInserted, Offset: 2, Value: 99}}, events)
	assert.Equal(t, []any{1, 2, 99, 3, 4}, c.Snapshot())

	// A's indices are unaffected by changes in B.
	events = nil
	require.NoError(t, a.Set(1, 20))
	assert.Equal(t, []reactive.SeqEvent{{Kind: domain.EventChanged, Offset: 1, Value: 20}}, events)
}

func TestConcat_ShiftsLaterSourcesWithoutReannouncing(t *testing.T) {
	h := reactive.NewHost()
	a := seq(t, h, "a", "a0")
	b := seq(t, h, "b", "b0", "b1")

	c, err := derive.Concat(a, b)
	require.NoError(t, err)
	var events []reactive.SeqEvent
	_, err = c.WatchArray(record(&events))
	require.NoError(t, err)
	events = nil

	require.NoError(t, a.Insert(0, "new"))
	require.NoError(t, b.Remove(1)) // a holds two elements now
	require.NoError(t, a.Remove(0))
	require.NoError(t, b.Set(0, "B0"))

	assert.Equal(t, []reactive.SeqEvent{
		{Kind: domain.EventInserted, Offset: 0, Value: "new"},
		{Kind: domain.EventDeleted, Offset: 3},
		{Kind: domain.EventDeleted, Offset: 0},
		{Kind: domain.EventChanged, Offset: 1, Value: "B0"},
	}, events)
	assert.Equal(t, []any{"a0", "B0"}, c.Snapshot())
}

func TestConcat_StaticSourcesAreSnapshots(t *testing.T) {
	h := reactive.NewHost()
	live := seq(t, h, "live", "x")
	static := []any{"s0", "s1"}

	c, err := derive.Concat(derive.Slice(static...), live)
	require.NoError(t, err)
	static[0] = "mutated after composition"

	assert.Equal(t, []any{"s0", "s1", "x"}, c.Snapshot())

	var events []reactive.SeqEvent
	_, err = c.WatchArray(record(&events))
	require.NoError(t, err)
	events = nil

	require.NoError(t, live.Append("y"))
	assert.Equal(t, []reactive.SeqEvent{{Kind: domain.EventInserted, Offset: 3, Value: "y"}}, events)
}

func TestConcat_Nested(t *testing.T) {
	h := reactive.NewHost()
	a := seq(t, h, "a", 1)
	b := seq(t, h, "b", 2)
	d := seq(t, h, "d", 4)

	inner, err := derive.Concat(a, b)
	require.NoError(t, err)
	outer, err := derive.Concat(inner, derive.Slice(3), d)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3, 4}, outer.Snapshot())

	var events []reactive.SeqEvent
	_, err = outer.WatchArray(record(&events))
	require.NoError(t, err)
	events = nil

	require.NoError(t, b.Append(2.5))
	require.NoError(t, d.Insert(0, 3.5))
	assert.Equal(t, []reactive.SeqEvent{
		{Kind: domain.EventInserted, Offset: 2, Value: 2.5},
		{Kind: domain.EventInserted, Offset: 4, Value: 3.5},
	}, events)
	assert.Equal(t, []any{1, 2, 2.5, 3, 3.5, 4}, outer.Snapshot())
}

func TestConcat_Dispose(t *testing.T) {
	h := reactive.NewHost()
	a := seq(t, h, "a", 1)

	c, err := derive.Concat(a)
	require.NoError(t, err)
	var events []reactive.SeqEvent
	_, err = c.WatchArray(record(&events))
	require.NoError(t, err)
	events = nil

	c.Dispose()
	c.Dispose()
	require.NoError(t, a.Append(2))
	assert.Empty(t, events)
	assert.Equal(t, []any{1}, c.Snapshot(), "disposed view stops recomputing")

	_, err = c.WatchArray(record(&events))
	assert.ErrorIs(t, err, domain.ErrDisposedTarget)
}

func TestConcat_ClosedSource(t *testing.T) {
	h := reactive.NewHost()
	a := seq(t, h, "a", 1)
	b := seq(t, h, "b", 2)
	b.Close()

	_, err := derive.Concat(a, b)
	assert.ErrorIs(t, err, domain.ErrDisposedTarget)

	// The watch taken on a before failing was released.
	require.NoError(t, a.Append(3))
}
