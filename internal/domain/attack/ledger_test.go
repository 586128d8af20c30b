package attack

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stampA = &WarStamp{WarID: "A", FactionID: "1001", StartTime: 1000}

func newTestLedger(policy DedupePolicy) *Ledger {
	l := NewLedger(nil, policy)
	l.now = func() time.Time { return time.Unix(5000, 0) }
	return l
}

func TestLedgerRecordRequiresWar(t *testing.T) {
	l := newTestLedger(DedupePolicy{})

	_, err := l.Record(nil, AttackRecord{AttackerID: "1", DefenderID: "2", Points: 1})
	assert.ErrorIs(t, err, ErrNoActiveWar)

	_, err = l.Record(stampA, AttackRecord{AttackerID: "1", DefenderID: "2", Points: -1})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = l.Record(stampA, AttackRecord{DefenderID: "2", Points: 1})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestLedgerRecordStampsEntryOnce(t *testing.T) {
	l := newTestLedger(DedupePolicy{})

	rec, err := l.Record(stampA, AttackRecord{AttackerID: "1", DefenderID: "2", Points: 1.5})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, SourceManual, rec.Source)
	assert.Equal(t, int64(5000), rec.Timestamp)

	_, err = l.Record(&WarStamp{WarID: "A", FactionID: "9999", StartTime: 42}, AttackRecord{AttackerID: "1", DefenderID: "3", Points: 1})
	require.NoError(t, err)

	entry, ok := l.War("A")
	require.True(t, ok)
	assert.Equal(t, "1001", entry.FactionID)
	assert.Equal(t, int64(1000), entry.StartTime)
	assert.Len(t, entry.Attacks, 2)
}

func TestLedgerDelete(t *testing.T) {
	l := newTestLedger(DedupePolicy{})
	for _, defender := range []string{"a", "b", "c"} {
		_, err := l.Record(stampA, AttackRecord{AttackerID: "1", DefenderID: defender, Points: 1})
		require.NoError(t, err)
	}

	removed, err := l.Delete("A", 2)
	require.NoError(t, err)
	assert.Equal(t, "b", removed.DefenderID)

	// positions shift after a deletion
	removed, err = l.Delete("A", 2)
	require.NoError(t, err)
	assert.Equal(t, "c", removed.DefenderID)

	_, err = l.Delete("A", 2)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.Delete("A", 0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.Delete("missing", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerImportSkipsKnownUpstreamIDs(t *testing.T) {
	l := newTestLedger(DedupePolicy{})
	batch := []AttackRecord{
		{UpstreamID: "10", AttackerID: "1", DefenderID: "2", Points: 1, Timestamp: 1100},
		{UpstreamID: "11", AttackerID: "1", DefenderID: "3", Points: 2, Timestamp: 1200},
		{UpstreamID: "12", AttackerID: "", DefenderID: "3", Points: 2, Timestamp: 1300},
	}

	added, err := l.Import(stampA, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = l.Import(stampA, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Equal(t, int64(1200), l.LatestImported("A"))

	_, err = l.Import(nil, batch)
	assert.True(t, errors.Is(err, ErrNoActiveWar))
}

func TestLedgerStatsFor(t *testing.T) {
	l := newTestLedger(DedupePolicy{})
	points := []float64{1, 2, 3, 4, 5, 6}
	for i, p := range points {
		_, err := l.Record(stampA, AttackRecord{AttackerID: "7", DefenderID: "2", Points: p, Timestamp: int64(2000 + i)})
		require.NoError(t, err)
	}
	_, err := l.Record(&WarStamp{WarID: "B", StartTime: 3000}, AttackRecord{AttackerID: "7", DefenderID: "2", Points: 10, Timestamp: 3500})
	require.NoError(t, err)

	stats := l.StatsFor("7", "A")
	assert.Equal(t, 6, stats.TotalAttacks)
	assert.InDelta(t, 21.0, stats.TotalPoints, 1e-9)
	assert.InDelta(t, 3.5, stats.AveragePoints, 1e-9)
	assert.Equal(t, []float64{2, 3, 4, 5, 6}, stats.Last5Points)

	allTime := l.StatsFor("7", "")
	assert.Equal(t, 7, allTime.TotalAttacks)
	assert.Equal(t, []float64{3, 4, 5, 6, 10}, allTime.Last5Points)

	empty := l.StatsFor("nobody", "A")
	assert.Equal(t, 0, empty.TotalAttacks)
	assert.Zero(t, empty.AveragePoints)
	assert.Empty(t, empty.Last5Points)
}

func TestLedgerDedupePolicy(t *testing.T) {
	manual := AttackRecord{AttackerID: "1", DefenderID: "2", Points: 1, Timestamp: 1500}
	api := []AttackRecord{{UpstreamID: "9", AttackerID: "1", DefenderID: "2", Points: 2.5, Timestamp: 1520}}

	tests := []struct {
		name           string
		policy         DedupePolicy
		expectedCount  int
		expectedPoints float64
	}{
		{"Disabled", DedupePolicy{}, 2, 3.5},
		{"WithinWindow", DedupePolicy{Window: time.Minute}, 1, 2.5},
		{"OutsideWindow", DedupePolicy{Window: 10 * time.Second}, 2, 3.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(tt.policy)
			_, err := l.Record(stampA, manual)
			require.NoError(t, err)
			_, err = l.Import(stampA, api)
			require.NoError(t, err)

			stats := l.StatsFor("1", "A")
			assert.Equal(t, tt.expectedCount, stats.TotalAttacks)
			assert.InDelta(t, tt.expectedPoints, stats.TotalPoints, 1e-9)

			raw, err := l.Attacks("A")
			require.NoError(t, err)
			assert.Len(t, raw, 2, "dedupe never removes stored records")
		})
	}
}

func TestLedgerSnapshotRoundTrip(t *testing.T) {
	l := newTestLedger(DedupePolicy{})
	_, err := l.Record(stampA, AttackRecord{AttackerID: "1", DefenderID: "2", Points: 1})
	require.NoError(t, err)

	restored := NewLedger(l.Snapshot(), DedupePolicy{})
	entry, ok := restored.War("A")
	require.True(t, ok)
	assert.Equal(t, *stampA, entry.WarStamp)
	assert.Len(t, entry.Attacks, 1)
}
