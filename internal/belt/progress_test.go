package belt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojoflow/dojoflow-api/internal/models"
)

func attendanceTimes(since time.Time, n int) []time.Time {
	times := make([]time.Time, n)
	for i := range times {
		times[i] = since.Add(time.Duration(i) * 24 * time.Hour)
	}
	return times
}

func TestEvaluateProgressReadiness(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg := DefaultClubConfig()

	student := &models.Student{
		ID:            "stu-1",
		CurrentBelt:   models.BeltBranca,
		CurrentDegree: 2,
		BeltSince:     now.AddDate(0, 0, -40),
	}

	t.Run("exactly at required count", func(t *testing.T) {
		res := EvaluateProgress(student, attendanceTimes(student.BeltSince, 20), cfg, now, 0)
		assert.Equal(t, 20, res.AttendedSinceBelt)
		assert.Equal(t, 20, res.RequiredForNextDegree)
		assert.True(t, res.ReadyForDegree)
		assert.True(t, res.Alert)
		assert.False(t, res.ReadyForBeltPromotion)
		assert.Equal(t, 3, res.NextDegreeIfAwarded)
		assert.Equal(t, models.Belt(""), res.NextBeltIfPromoted)
	})

	t.Run("one below required count", func(t *testing.T) {
		res := EvaluateProgress(student, attendanceTimes(student.BeltSince, 19), cfg, now, 0)
		assert.False(t, res.ReadyForDegree)
		// 19/20 is past the 0.9 alert threshold even though not ready.
		assert.True(t, res.Alert)
		assert.Equal(t, 2, res.NextDegreeIfAwarded)
	})

	t.Run("below alert threshold", func(t *testing.T) {
		res := EvaluateProgress(student, attendanceTimes(student.BeltSince, 10), cfg, now, 0)
		assert.False(t, res.ReadyForDegree)
		assert.False(t, res.Alert)
	})

	t.Run("months path qualifies without classes", func(t *testing.T) {
		s := *student
		s.BeltSince = now.AddDate(0, 0, -190) // over six 30-day blocks
		res := EvaluateProgress(&s, nil, cfg, now, 0)
		assert.Equal(t, 6, res.MonthsAtBelt)
		assert.True(t, res.ReadyForDegree)
		assert.False(t, res.Alert)
	})

	t.Run("months use thirty day blocks", func(t *testing.T) {
		s := *student
		s.BeltSince = now.AddDate(0, 0, -179)
		res := EvaluateProgress(&s, nil, cfg, now, 0)
		assert.Equal(t, 5, res.MonthsAtBelt)
		assert.False(t, res.ReadyForDegree)
	})
}

func TestEvaluateProgressDegreeOverflow(t *testing.T) {
	now := time.Now()
	cfg := DefaultClubConfig()

	student := &models.Student{
		ID:            "stu-2",
		CurrentBelt:   models.BeltRoxa,
		CurrentDegree: 4,
		BeltSince:     now.AddDate(0, 0, -90),
	}

	res := EvaluateProgress(student, attendanceTimes(student.BeltSince, 60), cfg, now, 0)
	require.True(t, res.ReadyForDegree)
	assert.True(t, res.ReadyForBeltPromotion)
	assert.Equal(t, 0, res.NextDegreeIfAwarded)
	assert.Equal(t, models.BeltMarrom, res.NextBeltIfPromoted)
}

func TestEvaluateProgressTopRankTerminal(t *testing.T) {
	now := time.Now()
	cfg := DefaultClubConfig()

	student := &models.Student{
		ID:            "stu-3",
		CurrentBelt:   models.BeltPreta,
		CurrentDegree: 4,
		BeltSince:     now.AddDate(0, 0, -400),
	}

	res := EvaluateProgress(student, attendanceTimes(student.BeltSince, 120), cfg, now, 0)
	require.True(t, res.ReadyForDegree)
	assert.False(t, res.ReadyForBeltPromotion)
	assert.Equal(t, models.Belt(""), res.NextBeltIfPromoted)
	assert.Equal(t, 0, res.NextDegreeIfAwarded)
}

func TestEvaluateProgressUnknownBeltDefaults(t *testing.T) {
	now := time.Now()
	student := &models.Student{
		ID:            "stu-4",
		CurrentBelt:   models.Belt("Coral"),
		CurrentDegree: 0,
		BeltSince:     now.AddDate(0, 0, -10),
	}

	res := EvaluateProgress(student, attendanceTimes(student.BeltSince, 20), ClubConfig{}, now, 0)
	assert.Equal(t, DefaultClassesPerDegree, res.RequiredForNextDegree)
	assert.True(t, res.ReadyForDegree)
}

func TestEvaluateProgressIdempotent(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg := DefaultClubConfig()
	student := &models.Student{
		ID:            "stu-5",
		CurrentBelt:   models.BeltAzul,
		CurrentDegree: 1,
		BeltSince:     now.AddDate(0, 0, -100),
	}
	times := attendanceTimes(student.BeltSince, 33)

	first := EvaluateProgress(student, times, cfg, now, 0)
	second := EvaluateProgress(student, times, cfg, now, 0)
	assert.Equal(t, first, second)
}

func TestNextRankState(t *testing.T) {
	now := time.Now()

	t.Run("degree award", func(t *testing.T) {
		state, ok := NextRankState(models.BeltAzul, 2, models.MaxDegree, now)
		require.True(t, ok)
		assert.Equal(t, models.BeltAzul, state.Belt)
		assert.Equal(t, 3, state.Degree)
		assert.Equal(t, now, state.BeltSince)
	})

	t.Run("belt advance at degree overflow", func(t *testing.T) {
		state, ok := NextRankState(models.BeltAzul, 4, models.MaxDegree, now)
		require.True(t, ok)
		assert.Equal(t, models.BeltRoxa, state.Belt)
		assert.Equal(t, 0, state.Degree)
	})

	t.Run("top rank is terminal", func(t *testing.T) {
		_, ok := NextRankState(models.BeltPreta, 4, models.MaxDegree, now)
		assert.False(t, ok)
	})
}

func TestFilterSince(t *testing.T) {
	since := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	times := []time.Time{
		since.AddDate(0, 0, -1),
		since,
		since.AddDate(0, 0, 1),
	}
	got := FilterSince(since, times)
	assert.Len(t, got, 2)
}
