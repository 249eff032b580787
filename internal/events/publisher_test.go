package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/trainersamay-api/internal/models"
	"github.com/noah-isme/trainersamay-api/pkg/config"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
	drained  bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func TestPublishSessionUsesPrefixedSubject(t *testing.T) {
	conn := &fakeConn{}
	p := newNatsPublisher(conn, "trainersamay", zap.NewNop())
	s := models.Session{ID: "s1", TrainerID: "t1", Status: models.SessionScheduled, Date: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), Duration: 60}

	require.NoError(t, p.PublishSession(context.Background(), SessionCreated, s, "admin-1"))
	require.Len(t, conn.subjects, 1)
	assert.Equal(t, "trainersamay.session.created", conn.subjects[0])

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(conn.payloads[0], &decoded))
	assert.Equal(t, "session.created", decoded["event_type"])
	assert.Equal(t, "s1", decoded["session_id"])
	assert.Equal(t, "admin-1", decoded["actor_id"])
	assert.NotEmpty(t, decoded["event_id"])
}

func TestPublishSessionPropagatesErrors(t *testing.T) {
	p := newNatsPublisher(&fakeConn{err: errors.New("no responders")}, "", zap.NewNop())
	err := p.PublishSession(context.Background(), SessionDeleted, models.Session{ID: "s1"}, "")
	assert.Error(t, err)
	assert.Equal(t, "session.deleted", p.Subject(SessionDeleted))
}

func TestPublishSessionHonoursCancelledContext(t *testing.T) {
	conn := &fakeConn{}
	p := newNatsPublisher(conn, "x", zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.PublishSession(ctx, SessionUpdated, models.Session{}, ""), context.Canceled)
	assert.Empty(t, conn.subjects)
}

func TestCloseDrains(t *testing.T) {
	conn := &fakeConn{}
	newNatsPublisher(conn, "x", zap.NewNop()).Close()
	assert.True(t, conn.drained)
}

func TestNewWithoutURLIsNoop(t *testing.T) {
	p, err := New(config.EventsConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, NoopPublisher{}, p)
	assert.NoError(t, p.PublishSession(context.Background(), SessionCreated, models.Session{}, ""))
}
