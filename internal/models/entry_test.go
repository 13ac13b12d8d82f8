package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueScoreOrdersPriorityBeforeArrival(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	urgentLate := &QueueEntry{Priority: PriorityUrgent, ArrivalTime: base.Add(2 * time.Hour)}
	normalEarly := &QueueEntry{Priority: PriorityNormal, ArrivalTime: base}

	require.Less(t, urgentLate.QueueScore(), normalEarly.QueueScore(),
		"an urgent arrival must outrank any earlier normal arrival")

	normalLater := &QueueEntry{Priority: PriorityNormal, ArrivalTime: base.Add(time.Minute)}
	require.Less(t, normalEarly.QueueScore(), normalLater.QueueScore(),
		"same priority orders by arrival")
}

func TestQueueScoreTiersNeverInterleave(t *testing.T) {
	// Even an entry waiting since far in the past cannot cross into the next
	// priority tier.
	old := &QueueEntry{Priority: PriorityNormal, ArrivalTime: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)}
	future := &QueueEntry{Priority: PriorityUrgent, ArrivalTime: time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)}

	require.Less(t, future.QueueScore(), old.QueueScore())
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		status      EntryStatus
		canCall     bool
		canComplete bool
		canSkip     bool
		canReprio   bool
		terminal    bool
	}{
		{EntryStatusWaiting, true, false, true, true, false},
		{EntryStatusServing, false, true, false, false, false},
		{EntryStatusCompleted, false, false, false, false, true},
		{EntryStatusSkipped, false, false, false, false, true},
	}

	for _, c := range cases {
		e := &QueueEntry{Status: c.status}
		require.Equal(t, c.canCall, e.CanCall(), "CanCall from %s", c.status)
		require.Equal(t, c.canComplete, e.CanComplete(), "CanComplete from %s", c.status)
		require.Equal(t, c.canSkip, e.CanSkip(), "CanSkip from %s", c.status)
		require.Equal(t, c.canReprio, e.CanReprioritize(), "CanReprioritize from %s", c.status)
		require.Equal(t, c.terminal, e.IsTerminal(), "IsTerminal from %s", c.status)
	}
}

func TestWaitSeconds(t *testing.T) {
	arrival := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	called := arrival.Add(12 * time.Minute)
	completed := arrival.Add(25 * time.Minute)

	e := &QueueEntry{ArrivalTime: arrival}
	_, ok := e.WaitSeconds()
	require.False(t, ok, "no wait figure before being called")

	e.CalledAt = &called
	w, ok := e.WaitSeconds()
	require.True(t, ok)
	require.InDelta(t, 720, w, 0.001)

	// Completion does not change the wait once CalledAt is set.
	e.CompletedAt = &completed
	w, _ = e.WaitSeconds()
	require.InDelta(t, 720, w, 0.001)

	// Never-called completed entries fall back to completion time.
	e2 := &QueueEntry{ArrivalTime: arrival, CompletedAt: &completed}
	w, ok = e2.WaitSeconds()
	require.True(t, ok)
	require.InDelta(t, 1500, w, 0.001)
}

func TestCloneDoesNotAlias(t *testing.T) {
	called := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	e := &QueueEntry{ID: "a", Status: EntryStatusServing, CalledAt: &called}

	c := e.Clone()
	c.Status = EntryStatusCompleted
	*c.CalledAt = called.Add(time.Hour)

	require.Equal(t, EntryStatusServing, e.Status)
	require.Equal(t, called, *e.CalledAt)
}

func TestQueueNumberRoundTrip(t *testing.T) {
	n := FormatQueueNumber(DepartmentOPD, 14)
	require.Equal(t, "OPD-014", n)

	seq, err := QueueNumberSeq(n)
	require.NoError(t, err)
	require.EqualValues(t, 14, seq)

	// Sequences past three digits keep parsing.
	seq, err = QueueNumberSeq(FormatQueueNumber(DepartmentEmergency, 1042))
	require.NoError(t, err)
	require.EqualValues(t, 1042, seq)

	_, err = QueueNumberSeq("garbage")
	require.Error(t, err)
}

func TestDepartmentValidity(t *testing.T) {
	for _, d := range Departments() {
		require.True(t, d.Valid())
		require.NotEmpty(t, d.Code())
	}

	require.False(t, Department("Cardiology").Valid())
	require.False(t, Department("").Valid())
	require.False(t, Department("opd").Valid(), "department names are case sensitive")
}

func TestPriorityValidity(t *testing.T) {
	require.True(t, PriorityEmergency.Valid())
	require.True(t, PriorityFollowUp.Valid())
	require.False(t, Priority(0).Valid())
	require.False(t, Priority(5).Valid())
}
