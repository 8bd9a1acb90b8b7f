package postgresql_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/postgresql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to TEST_DATABASE_URL, applies the schema and empties
// the tables. Tests are skipped when no database is configured.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	db, err := database.NewPostgreSQLDB(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	ctx := context.Background()
	require.NoError(t, postgresql.Migrate(ctx, db))
	_, err = db.Exec(ctx, "TRUNCATE TABLE punch_events, employees, departments CASCADE")
	require.NoError(t, err)

	return db
}

func strPtr(s string) *string { return &s }

func TestPunchEventRepository_AppendAndFetch(t *testing.T) {
	db := setupTestDB(t)
	repo := postgresql.NewPunchEventRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 3, 30, 0, 0, time.UTC)

	in, err := repo.Append(ctx, punch.PunchEvent{UserID: "u1", Timestamp: base, Direction: punch.DirectionIn, DeviceID: "gate-1", Location: strPtr("HQ")})
	require.NoError(t, err)
	assert.NotEmpty(t, in.ID)
	assert.False(t, in.CreatedAt.IsZero())

	_, err = repo.Append(ctx, punch.PunchEvent{UserID: "u1", Timestamp: base.Add(9 * time.Hour), Direction: punch.DirectionOut, DeviceID: "gate-1"})
	require.NoError(t, err)
	_, err = repo.Append(ctx, punch.PunchEvent{UserID: "u2", Timestamp: base.Add(time.Hour), Direction: punch.DirectionIn, DeviceID: "gate-2"})
	require.NoError(t, err)
	// outside the queried range
	_, err = repo.Append(ctx, punch.PunchEvent{UserID: "u1", Timestamp: base.Add(48 * time.Hour), Direction: punch.DirectionIn})
	require.NoError(t, err)

	userID := "u1"
	events, err := repo.FetchEvents(ctx, punch.EventQuery{UserID: &userID, Start: base, End: base.Add(24 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, in.ID, events[0].ID)
	assert.Equal(t, base, events[0].Timestamp)
	assert.Equal(t, "HQ", *events[0].Location)
	assert.Equal(t, punch.DirectionOut, events[1].Direction)

	all, err := repo.FetchEvents(ctx, punch.EventQuery{Start: base, End: base.Add(24 * time.Hour)})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPunchEventRepository_VoidMarkerRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := postgresql.NewPunchEventRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 3, 30, 0, 0, time.UTC)

	target, err := repo.Append(ctx, punch.PunchEvent{UserID: "u1", Timestamp: base, Direction: punch.DirectionIn})
	require.NoError(t, err)
	marker, err := repo.Append(ctx, punch.PunchEvent{
		UserID: "u1", Timestamp: base, Direction: punch.DirectionIn,
		Corrected: true, VoidsEventID: &target.ID, Note: strPtr("device bounce"),
	})
	require.NoError(t, err)

	events, err := repo.FetchEvents(ctx, punch.EventQuery{Start: base, End: base.Add(time.Minute)})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Empty(t, punch.Effective(events))

	var got punch.PunchEvent
	for _, e := range events {
		if e.ID == marker.ID {
			got = e
		}
	}
	assert.True(t, got.IsVoidMarker())
	assert.Equal(t, "device bounce", *got.Note)
}

func TestPunchEventRepository_FingerprintTracksFetch(t *testing.T) {
	db := setupTestDB(t)
	repo := postgresql.NewPunchEventRepository(db)
	fp, ok := repo.(punch.Fingerprinter)
	require.True(t, ok)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 3, 30, 0, 0, time.UTC)
	userID := "u1"
	q := punch.EventQuery{UserID: &userID, Start: base, End: base.Add(24 * time.Hour)}

	empty, err := fp.Fingerprint(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, punch.Fingerprint{}, empty)

	_, err = repo.Append(ctx, punch.PunchEvent{UserID: "u1", Timestamp: base, Direction: punch.DirectionIn})
	require.NoError(t, err)
	_, err = repo.Append(ctx, punch.PunchEvent{UserID: "u1", Timestamp: base.Add(9 * time.Hour), Direction: punch.DirectionOut})
	require.NoError(t, err)
	_, err = repo.Append(ctx, punch.PunchEvent{UserID: "u2", Timestamp: base, Direction: punch.DirectionIn})
	require.NoError(t, err)

	events, err := repo.FetchEvents(ctx, q)
	require.NoError(t, err)
	got, err := fp.Fingerprint(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, punch.FingerprintOf(events), got)
	assert.Equal(t, 2, got.Count)
}

func TestPunchEventRepository_RejectsInvalid(t *testing.T) {
	db := setupTestDB(t)
	repo := postgresql.NewPunchEventRepository(db)

	_, err := repo.Append(context.Background(), punch.PunchEvent{UserID: "u1", Timestamp: time.Now(), Direction: "SIDEWAYS"})
	assert.ErrorIs(t, err, punch.ErrInvalidEvent)

	_, err = repo.FetchEvents(context.Background(), punch.EventQuery{})
	assert.ErrorIs(t, err, punch.ErrInvalidQuery)
}

func TestEmployeeDirectory(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.Exec(ctx, `INSERT INTO departments (id, name) VALUES ('eng', 'Engineering'), ('ops', 'Operations')`)
	require.NoError(t, err)
	_, err = db.Exec(ctx, `
		INSERT INTO employees (user_id, employee_code, full_name, username, department_id, is_active, deleted_at) VALUES
			('u1', 'EMP-001', 'Asha Rao', 'asha', 'eng', TRUE, NULL),
			('u2', NULL, 'Bima Putra', 'bima', 'ops', TRUE, NULL),
			('u3', 'EMP-003', 'Chen Li', 'chen', 'eng', FALSE, NULL),
			('u4', 'EMP-004', 'Dewi Sari', 'dewi', 'eng', TRUE, NOW())
	`)
	require.NoError(t, err)

	dir := postgresql.NewEmployeeDirectory(db)

	found, err := dir.GetByIDs(ctx, []string{"u1", "u2", "u4", "missing"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "Engineering", found["u1"].Department())
	assert.Equal(t, "EMP-001", found["u1"].Code())
	assert.Equal(t, "N/A", found["u2"].Code())

	eng, err := dir.ListByDepartment(ctx, "eng")
	require.NoError(t, err)
	require.Len(t, eng, 1)
	assert.Equal(t, "u1", eng[0].UserID)

	active, err := dir.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Asha Rao", active[0].FullName)
	assert.Equal(t, "Bima Putra", active[1].FullName)
}

func TestWithTransaction_RollsBack(t *testing.T) {
	db := setupTestDB(t)
	repo := postgresql.NewPunchEventRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 3, 30, 0, 0, time.UTC)

	err := postgresql.WithTransaction(ctx, db, func(ctx context.Context) error {
		if _, err := repo.Append(ctx, punch.PunchEvent{UserID: "u1", Timestamp: base, Direction: punch.DirectionIn}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	events, err := repo.FetchEvents(ctx, punch.EventQuery{Start: base, End: base.Add(time.Minute)})
	require.NoError(t, err)
	assert.Empty(t, events)
}
