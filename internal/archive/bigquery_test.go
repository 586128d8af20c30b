package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"torn_war_bot/internal/config"
	"torn_war_bot/internal/domain/attack"
	"torn_war_bot/internal/domain/leaderboard"
	"torn_war_bot/internal/domain/war"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInserter struct {
	puts []interface{}
	err  error
}

func (f *fakeInserter) Put(ctx context.Context, src interface{}) error {
	f.puts = append(f.puts, src)
	return f.err
}

func summary(records ...attack.AttackRecord) leaderboard.WarSummary {
	entry := war.WarHistoryEntry{
		WarID:         "555",
		TrackedID:     "1001",
		TrackedName:   "Home",
		OpponentID:    "2002",
		OpponentName:  "Away",
		TrackedScore:  3100,
		OpponentScore: 1500,
		StartTime:     1700000000,
		EndTime:       1700090000,
		Outcome:       war.OutcomeTracked,
	}
	return leaderboard.Summarize(entry, war.WarSnapshot{WarID: "555"}, nil, false, records)
}

func noRetry(a *Archiver) *Archiver {
	a.retry = config.RetryConfig{MaxAttempts: 1}
	return a
}

func TestArchiver_ExportWar(t *testing.T) {
	wars, attacks := &fakeInserter{}, &fakeInserter{}
	a := noRetry(NewArchiver(wars, attacks))
	assert.Equal(t, "bigquery", a.Name())

	s := summary(
		attack.AttackRecord{ID: "a1", AttackerID: "11", DefenderID: "21", Points: 3, Timestamp: 1700000100, Source: attack.SourceAPI},
		attack.AttackRecord{ID: "a2", AttackerID: "12", DefenderID: "22", Points: 1, Timestamp: 1700000200, Source: attack.SourceManual},
	)
	require.NoError(t, a.ExportWar(context.Background(), s))

	require.Len(t, wars.puts, 1)
	warSaver, ok := wars.puts[0].(*bigquery.StructSaver)
	require.True(t, ok)
	assert.Equal(t, "war-555", warSaver.InsertID)
	row := warSaver.Struct.(WarRow)
	assert.Equal(t, "tracked", row.Outcome)
	assert.Equal(t, "ledger", row.Source)
	assert.Equal(t, 4.0, row.TotalPoints)

	require.Len(t, attacks.puts, 1)
	savers, ok := attacks.puts[0].([]*bigquery.StructSaver)
	require.True(t, ok)
	require.Len(t, savers, 2)
	assert.Equal(t, "555-a1", savers[0].InsertID)
	assert.Equal(t, "555-a2", savers[1].InsertID)
}

func TestArchiver_NoAttacks(t *testing.T) {
	wars, attacks := &fakeInserter{}, &fakeInserter{}
	require.NoError(t, noRetry(NewArchiver(wars, attacks)).ExportWar(context.Background(), summary()))

	assert.Len(t, wars.puts, 1)
	assert.Empty(t, attacks.puts)
}

func TestArchiver_WarInsertFails(t *testing.T) {
	boom := errors.New("insert failed")
	wars, attacks := &fakeInserter{err: boom}, &fakeInserter{}

	err := noRetry(NewArchiver(wars, attacks)).ExportWar(context.Background(),
		summary(attack.AttackRecord{ID: "a1", AttackerID: "11"}))

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, attacks.puts, "attacks must not be written when the war row fails")
}

func TestBuildWarRow_Times(t *testing.T) {
	row := BuildWarRow(summary())
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), row.StartTime)
	assert.True(t, row.RecordedAt.IsZero())
}
