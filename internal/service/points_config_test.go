package service

import (
	"testing"

	"github.com/richardliu001/school-rewards/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointsConfigs_DefaultsAndUpsert(t *testing.T) {
	env := newTestEnv(t)

	cfg, err := env.configs.Get(env.ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), cfg.ChurchID)
	assert.Equal(t, int64(50), cfg.MaxTeacherAdjustment)
	assert.True(t, cfg.IsStoreEnabled)

	_, err = env.configs.Upsert(env.ctx, model.PointsConfig{ChurchID: 7, AttendancePoints: 5, MaxTeacherAdjustment: 20})
	require.NoError(t, err)
	cfg, err = env.configs.Get(env.ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(5), cfg.AttendancePoints)
	assert.Equal(t, int64(20), cfg.MaxTeacherAdjustment)
	assert.False(t, cfg.IsStoreEnabled)

	_, err = env.configs.Upsert(env.ctx, model.PointsConfig{ChurchID: 7, TripPoints: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.configs.Get(env.ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAwards(t *testing.T) {
	env := newTestEnv(t)
	env.wallet(t, 1, 0)

	first, err := env.awards.AwardAttendance(env.ctx, 1, "2026-10-11", ptr(teacher))
	require.NoError(t, err)
	second, err := env.awards.AwardAttendance(env.ctx, 1, "2026-10-11", ptr(teacher))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = env.awards.AwardTrip(env.ctx, 1, "trip-3", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(35), env.points(t, 1))

	_, err = env.awards.AwardTrip(env.ctx, 1, "", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.configs.Upsert(env.ctx, model.PointsConfig{ChurchID: testChurch, AttendancePoints: 10})
	require.NoError(t, err)
	none, err := env.awards.AwardTrip(env.ctx, 1, "trip-4", nil)
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.Equal(t, int64(35), env.points(t, 1))
	env.requireConsistent(t, 1)
}
