package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
)

func TestDatePresetRange(t *testing.T) {
	now := time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC) }

	testCases := []struct {
		preset     model.DatePreset
		start, end time.Time
	}{
		{model.DatePresetToday, day(15), day(15)},
		{model.DatePresetYesterday, day(14), day(14)},
		{model.DatePresetWeek, day(9), day(15)},
		{model.DatePresetMonth, time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC), day(15)},
	}

	for _, tc := range testCases {
		t.Run(string(tc.preset), func(t *testing.T) {
			r, err := tc.preset.Range(now)
			gt.NoError(t, err).Required()
			gt.V(t, r.Start).NotNil()
			gt.V(t, r.End).NotNil()
			gt.Equal(t, *r.Start, tc.start)
			gt.Equal(t, r.End.Format("2006-01-02 15:04:05"), tc.end.Format("2006-01-02")+" 23:59:59")
		})
	}

	t.Run("all time is unbounded", func(t *testing.T) {
		r, err := model.DatePresetAll.Range(now)
		gt.NoError(t, err)
		gt.True(t, r.IsZero())
	})

	t.Run("unknown preset", func(t *testing.T) {
		_, err := model.DatePreset("decade").Range(now)
		var verr model.ValidationErrors
		gt.True(t, errors.As(err, &verr))
		gt.Equal(t, verr["preset"], "Unknown date preset")
	})
}

func TestParseDateRange(t *testing.T) {
	r, err := model.ParseDateRange("2024-01-01", "2024-01-31", time.UTC)
	gt.NoError(t, err).Required()
	gt.Equal(t, r.Start.Format(time.RFC3339), "2024-01-01T00:00:00Z")
	gt.Equal(t, r.End.Format(time.RFC3339), "2024-01-31T23:59:59Z")

	r, err = model.ParseDateRange("", "", time.UTC)
	gt.NoError(t, err)
	gt.True(t, r.IsZero())

	_, err = model.ParseDateRange("01/02/2024", "", time.UTC)
	gt.Error(t, err)

	_, err = model.ParseDateRange("2024-03-20", "2024-03-10", time.UTC)
	var verr model.ValidationErrors
	gt.True(t, errors.As(err, &verr))
	gt.Equal(t, verr["end"], "End date must not be before start date")
}

func TestDateRangeContainsEndOfDay(t *testing.T) {
	r, err := model.ParseDateRange("2024-01-01", "2024-01-01", time.UTC)
	gt.NoError(t, err).Required()
	gt.True(t, r.Contains(time.Date(2024, 1, 1, 23, 59, 59, 999, time.UTC)))
	gt.False(t, r.Contains(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
	gt.False(t, r.Contains(time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)))
}
