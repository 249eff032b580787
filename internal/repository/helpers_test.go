package repository

import (
	"database/sql/driver"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

var sessionRowColumns = []string{"id", "trainer_id", "trainer_name", "batch", "session_type", "date", "duration", "location", "notes", "status", "created_at", "updated_at", "feedback"}

func sessionRows(rows ...[]driver.Value) *sqlmock.Rows {
	out := sqlmock.NewRows(sessionRowColumns)
	for _, r := range rows {
		out.AddRow(r...)
	}
	return out
}

func sessionRow(id, trainer string, at time.Time, minutes int, status string) []driver.Value {
	return []driver.Value{id, trainer, "Asha", "Morning", "Yoga", at, minutes, "Studio A", "", status, at, at, ""}
}
