package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexIDAcceptsStringAndNumber(t *testing.T) {
	var req SessionRequest
	require.NoError(t, json.Unmarshal([]byte(`{"trainer": 42}`), &req))
	assert.Equal(t, "42", req.TrainerRef())

	req = SessionRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"trainerId": " t-1 ", "trainer": 7}`), &req))
	assert.Equal(t, "t-1", req.TrainerRef())

	req = SessionRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"trainerId": null}`), &req))
	assert.Empty(t, req.TrainerRef())
}

func TestFlexIDRejectsObjects(t *testing.T) {
	var id FlexID
	assert.Error(t, json.Unmarshal([]byte(`{"id":1}`), &id))
}

func TestReplaceAvailabilityRequestShapes(t *testing.T) {
	var bare ReplaceAvailabilityRequest
	require.NoError(t, json.Unmarshal([]byte(`[{"day":"Monday","startTime":"09:00","endTime":"17:00"}]`), &bare))
	require.Len(t, bare.Availabilities, 1)
	assert.Equal(t, Weekday("Monday"), bare.Availabilities[0].Day)

	var wrapped ReplaceAvailabilityRequest
	require.NoError(t, json.Unmarshal([]byte(`{"availabilities":[{"day":"Friday","startTime":"08:00","endTime":"12:00"}]}`), &wrapped))
	require.Len(t, wrapped.Availabilities, 1)
	assert.Equal(t, "12:00", wrapped.Availabilities[0].EndTime)
}

func TestActorCanActFor(t *testing.T) {
	assert.True(t, Actor{UserID: "a", Role: RoleAdmin}.CanActFor("t1"))
	assert.True(t, Actor{UserID: "t1", Role: RoleTrainer}.CanActFor("t1"))
	assert.False(t, Actor{UserID: "t2", Role: RoleTrainer}.CanActFor("t1"))
	assert.False(t, Actor{Role: RoleTrainer}.CanActFor(""))
}
