package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/trainersamay-api/internal/models"
)

const (
	sessionSelect = `SELECT s.id, s.trainer_id, COALESCE(u.name, '') AS trainer_name, s.batch, s.session_type, s.date, s.duration, s.location, COALESCE(s.notes, '') AS notes, s.status, s.created_at, s.updated_at, COALESCE(s.feedback, '') AS feedback FROM sessions s LEFT JOIN users u ON u.id = s.trainer_id`

	// windowMargin bounds how far before a draft an overlapping session can
	// start. Durations are capped well below it.
	windowMargin = 24 * time.Hour
)

// SessionRepository provides database access for training sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// List returns sessions matching filter ordered by date.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	var conditions []string
	var args []interface{}

	if filter.TrainerID != "" {
		conditions = append(conditions, fmt.Sprintf("s.trainer_id = $%d", len(args)+1))
		args = append(args, filter.TrainerID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.SessionType != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(s.session_type) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.SessionType)+"%")
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("s.date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("s.date < $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	query := sessionSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if filter.Newest {
		query += " ORDER BY s.date DESC, s.id ASC"
	} else {
		query += " ORDER BY s.date ASC, s.id ASC"
	}

	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// FindByID returns a session by identifier.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := r.db.GetContext(ctx, &session, sessionSelect+` WHERE s.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// NextScheduled returns the earliest Scheduled session starting after now,
// optionally restricted to one trainer.
func (r *SessionRepository) NextScheduled(ctx context.Context, trainerID string, now time.Time) (*models.Session, error) {
	query := sessionSelect + ` WHERE s.status = $1 AND s.date > $2`
	args := []interface{}{models.SessionScheduled, now}
	if trainerID != "" {
		query += ` AND s.trainer_id = $3`
		args = append(args, trainerID)
	}
	query += ` ORDER BY s.date ASC LIMIT 1`

	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("next scheduled session: %w", err)
	}
	return &session, nil
}

// ListScheduledBefore returns Scheduled sessions starting before cutoff.
func (r *SessionRepository) ListScheduledBefore(ctx context.Context, cutoff time.Time) ([]models.Session, error) {
	var sessions []models.Session
	query := sessionSelect + ` WHERE s.status = $1 AND s.date < $2 ORDER BY s.date ASC`
	if err := r.db.SelectContext(ctx, &sessions, query, models.SessionScheduled, cutoff); err != nil {
		return nil, fmt.Errorf("list scheduled sessions: %w", err)
	}
	return sessions, nil
}

// CreateBatch inserts sessions of a single trainer atomically. guard runs
// under the trainer's advisory lock with the bookings near the new ones.
func (r *SessionRepository) CreateBatch(ctx context.Context, sessions []*models.Session, guard models.SessionGuard) error {
	if len(sessions) == 0 {
		return nil
	}
	trainerID := sessions[0].TrainerID
	from, to := sessions[0].Date, sessions[0].End()
	for _, s := range sessions[1:] {
		if s.TrainerID != trainerID {
			return fmt.Errorf("create sessions: mixed trainers in batch")
		}
		if s.Date.Before(from) {
			from = s.Date
		}
		if s.End().After(to) {
			to = s.End()
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create sessions: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existing, err := lockAndLoad(ctx, tx, trainerID, from, to)
	if err != nil {
		return err
	}
	if guard != nil {
		if err = guard(existing); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	const query = `INSERT INTO sessions (id, trainer_id, batch, session_type, date, duration, location, notes, feedback, status, created_at, updated_at) VALUES (:id, :trainer_id, :batch, :session_type, :date, :duration, :location, :notes, NULLIF(:feedback, ''), :status, :created_at, :updated_at)`
	for _, s := range sessions {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		s.CreatedAt, s.UpdatedAt = now, now
		if _, err = tx.NamedExecContext(ctx, query, s); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create sessions: %w", err)
	}
	return nil
}

// UpdateGuarded rewrites a session under its trainer's advisory lock.
func (r *SessionRepository) UpdateGuarded(ctx context.Context, session *models.Session, guard models.SessionGuard) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update session: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existing, err := lockAndLoad(ctx, tx, session.TrainerID, session.Date, session.End())
	if err != nil {
		return err
	}
	if guard != nil {
		if err = guard(existing); err != nil {
			return err
		}
	}

	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sessions SET trainer_id = :trainer_id, batch = :batch, session_type = :session_type, date = :date, duration = :duration, location = :location, notes = :notes, feedback = NULLIF(:feedback, ''), status = :status, updated_at = :updated_at WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, query, session)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if err = expectAffected(res); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update session: %w", err)
	}
	return nil
}

// UpdateStatus sets the status of one session. A nil feedback keeps the
// stored value.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id string, status models.SessionStatus, feedback *string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions SET status = $2, feedback = COALESCE($3, feedback), updated_at = $4 WHERE id = $1`, id, status, feedback, at)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	return expectAffected(res)
}

// MarkAbsent flips the given sessions to Absent if they are still Scheduled
// and returns the ids that changed.
func (r *SessionRepository) MarkAbsent(ctx context.Context, ids []string, at time.Time) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `UPDATE sessions SET status = $1, updated_at = $2 WHERE id = ANY($3) AND status = $4 RETURNING id`
	var marked []string
	if err := r.db.SelectContext(ctx, &marked, query, models.SessionAbsent, at, pq.Array(ids), models.SessionScheduled); err != nil {
		return nil, fmt.Errorf("mark sessions absent: %w", err)
	}
	return marked, nil
}

// Delete removes a session.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return expectAffected(res)
}

func lockAndLoad(ctx context.Context, tx *sqlx.Tx, trainerID string, from, to time.Time) ([]models.Session, error) {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, trainerID); err != nil {
		return nil, fmt.Errorf("lock trainer %s: %w", trainerID, err)
	}
	var existing []models.Session
	query := sessionSelect + ` WHERE s.trainer_id = $1 AND s.date > $2 AND s.date < $3 ORDER BY s.date ASC, s.id ASC`
	if err := tx.SelectContext(ctx, &existing, query, trainerID, from.Add(-windowMargin), to); err != nil {
		return nil, fmt.Errorf("load trainer sessions: %w", err)
	}
	return existing, nil
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
