package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/trainersamay-api/internal/models"
)

const availabilityColumns = `id, trainer_id, day, start_time, end_time, created_at`

// dayOrder sorts weekday names Sunday first.
const dayOrder = `array_position(ARRAY['Sunday','Monday','Tuesday','Wednesday','Thursday','Friday','Saturday'], day)`

// AvailabilityRepository provides database access for weekly availability.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs an AvailabilityRepository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// List returns every availability record, grouped by trainer.
func (r *AvailabilityRepository) List(ctx context.Context) ([]models.Availability, error) {
	query := `SELECT ` + availabilityColumns + ` FROM availabilities ORDER BY trainer_id ASC, ` + dayOrder
	var out []models.Availability
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("list availabilities: %w", err)
	}
	return out, nil
}

// ListByTrainer returns a trainer's weekly windows.
func (r *AvailabilityRepository) ListByTrainer(ctx context.Context, trainerID string) ([]models.Availability, error) {
	query := `SELECT ` + availabilityColumns + ` FROM availabilities WHERE trainer_id = $1 ORDER BY ` + dayOrder
	var out []models.Availability
	if err := r.db.SelectContext(ctx, &out, query, trainerID); err != nil {
		return nil, fmt.Errorf("list trainer availabilities: %w", err)
	}
	return out, nil
}

// Replace swaps the trainer's whole weekly set in one transaction.
func (r *AvailabilityRepository) Replace(ctx context.Context, trainerID string, slots []models.Availability) ([]models.Availability, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin replace availabilities: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM availabilities WHERE trainer_id = $1`, trainerID); err != nil {
		return nil, fmt.Errorf("clear availabilities: %w", err)
	}

	now := time.Now().UTC()
	const insert = `INSERT INTO availabilities (id, trainer_id, day, start_time, end_time, created_at) VALUES (:id, :trainer_id, :day, :start_time, :end_time, :created_at)`
	stored := make([]models.Availability, 0, len(slots))
	for _, slot := range slots {
		slot.TrainerID = trainerID
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		slot.CreatedAt = now
		if _, err = tx.NamedExecContext(ctx, insert, slot); err != nil {
			return nil, fmt.Errorf("insert availability: %w", err)
		}
		stored = append(stored, slot)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit replace availabilities: %w", err)
	}
	return stored, nil
}
