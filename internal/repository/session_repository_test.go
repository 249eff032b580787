package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trainersamay-api/internal/models"
)

func TestListSessionsBuildsFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	mock.ExpectQuery(regexp.QuoteMeta(sessionSelect+" WHERE s.trainer_id = $1 AND s.status = $2 AND LOWER(s.session_type) LIKE $3 AND s.date >= $4 AND s.date < $5 ORDER BY s.date DESC, s.id ASC")).
		WithArgs("t1", models.SessionCompleted, "%yo%", from, to).
		WillReturnRows(sessionRows(sessionRow("s1", "t1", from.Add(10*time.Hour), 60, "Completed")))

	sessions, err := repo.List(context.Background(), models.SessionFilter{
		TrainerID:   "t1",
		Status:      models.SessionCompleted,
		SessionType: "Yo",
		From:        &from,
		To:          &to,
		Newest:      true,
	})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "Asha", sessions[0].TrainerName)
	assert.Equal(t, models.SessionYoga, sessions[0].SessionType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSessionsDefaultOrder(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(sessionSelect + " ORDER BY s.date ASC, s.id ASC")).
		WillReturnRows(sessionRows())

	sessions, err := repo.List(context.Background(), models.SessionFilter{})
	require.NoError(t, err)
	assert.Empty(t, sessions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBatchRunsGuardUnderLock(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	first := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	second := first.AddDate(0, 0, 7)
	existingAt := first.Add(-2 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.trainer_id = $1 AND s.date > $2 AND s.date < $3")).
		WithArgs("t1", first.Add(-windowMargin), second.Add(time.Hour)).
		WillReturnRows(sessionRows(sessionRow("old", "t1", existingAt, 60, "Scheduled")))
	mock.ExpectExec("INSERT INTO sessions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO sessions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	batch := []*models.Session{
		{TrainerID: "t1", Date: first, Duration: 60, Status: models.SessionScheduled},
		{TrainerID: "t1", Date: second, Duration: 60, Status: models.SessionScheduled},
	}
	var seen []models.Session
	err := repo.CreateBatch(context.Background(), batch, func(existing []models.Session) error {
		seen = existing
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, "old", seen[0].ID)
	assert.NotEmpty(t, batch[0].ID)
	assert.NotEqual(t, batch[0].ID, batch[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBatchGuardRejectionRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM sessions s").WillReturnRows(sessionRows())
	mock.ExpectRollback()

	rejected := errors.New("conflict")
	err := repo.CreateBatch(context.Background(), []*models.Session{{TrainerID: "t1", Date: at, Duration: 30}}, func([]models.Session) error {
		return rejected
	})
	assert.ErrorIs(t, err, rejected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBatchRejectsMixedTrainers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	at := time.Now()
	err := repo.CreateBatch(context.Background(), []*models.Session{
		{TrainerID: "t1", Date: at, Duration: 30},
		{TrainerID: "t2", Date: at, Duration: 30},
	}, nil)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateGuardedMissingRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM sessions s").WillReturnRows(sessionRows())
	mock.ExpectExec("UPDATE sessions SET trainer_id").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.UpdateGuarded(context.Background(), &models.Session{ID: "gone", TrainerID: "t1", Date: time.Now(), Duration: 30}, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkAbsent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	at := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE sessions SET status = $1, updated_at = $2 WHERE id = ANY($3) AND status = $4 RETURNING id")).
		WithArgs(models.SessionAbsent, at, sqlmock.AnyArg(), models.SessionScheduled).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a").AddRow("c"))

	marked, err := repo.MarkAbsent(context.Background(), []string{"a", "b", "c"}, at)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, marked)

	marked, err = repo.MarkAbsent(context.Background(), nil, at)
	require.NoError(t, err)
	assert.Empty(t, marked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusKeepsFeedbackWhenNil(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	at := time.Now().UTC()
	note := "Strong group"
	update := regexp.QuoteMeta("UPDATE sessions SET status = $2, feedback = COALESCE($3, feedback), updated_at = $4 WHERE id = $1")
	mock.ExpectExec(update).
		WithArgs("s1", models.SessionCompleted, note, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(update).
		WithArgs("s2", models.SessionCancelled, nil, at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateStatus(context.Background(), "s1", models.SessionCompleted, &note, at))
	err := repo.UpdateStatus(context.Background(), "s2", models.SessionCancelled, nil, at)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNextScheduledForTrainer(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.status = $1 AND s.date > $2 AND s.trainer_id = $3 ORDER BY s.date ASC LIMIT 1")).
		WithArgs(models.SessionScheduled, now, "t1").
		WillReturnRows(sessionRows(sessionRow("next", "t1", now.Add(time.Hour), 45, "Scheduled")))

	s, err := repo.NextScheduled(context.Background(), "t1", now)
	require.NoError(t, err)
	assert.Equal(t, "next", s.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSessionMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE id = $1")).WithArgs("x").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "x"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
