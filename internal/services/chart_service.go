package services

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/dto"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/models"
	"gorm.io/gorm"
)

const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

const dateKey = "2006-01-02"

// ChartService counts usage records per day, week or month.
type ChartService struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

func NewChartService(db *gorm.DB, loc *time.Location) *ChartService {
	if loc == nil {
		loc = time.UTC
	}
	return &ChartService{db: db, loc: loc, now: time.Now}
}

// WithClock replaces the time source.
func (s *ChartService) WithClock(now func() time.Time) *ChartService {
	s.now = now
	return s
}

// Usage returns one zero-filled bucket per day (7), week (4, starting Monday)
// or month (6), oldest first, ending with the bucket holding now.
func (s *ChartService) Usage(ctx context.Context, period string) ([]dto.ChartPoint, error) {
	if period == "" {
		period = PeriodDaily
	}
	starts, err := bucketStarts(period, s.now().In(s.loc))
	if err != nil {
		return nil, err
	}

	var times []time.Time
	err = s.db.WithContext(ctx).Model(&models.UsageLog{}).
		Where("created_at >= ?", starts[0].UTC()).
		Pluck("created_at", &times).Error
	if err != nil {
		return nil, apperr.Store("failed to load usage", err)
	}

	counts := make(map[string]int, len(starts))
	for _, start := range starts {
		counts[start.Format(dateKey)] = 0
	}
	for _, t := range times {
		key := bucketStart(period, t.In(s.loc)).Format(dateKey)
		if _, ok := counts[key]; ok {
			counts[key]++
		}
	}

	points := make([]dto.ChartPoint, 0, len(starts))
	for _, start := range starts {
		points = append(points, dto.ChartPoint{
			Date:        start.Format(dateKey),
			Count:       counts[start.Format(dateKey)],
			DisplayDate: displayDate(period, start),
		})
	}
	return points, nil
}

func bucketStarts(period string, now time.Time) ([]time.Time, error) {
	var n int
	var step func(t time.Time, back int) time.Time
	switch period {
	case PeriodDaily:
		n = 7
		step = func(t time.Time, back int) time.Time { return t.AddDate(0, 0, -back) }
	case PeriodWeekly:
		n = 4
		step = func(t time.Time, back int) time.Time { return t.AddDate(0, 0, -7*back) }
	case PeriodMonthly:
		n = 6
		step = func(t time.Time, back int) time.Time { return t.AddDate(0, -back, 0) }
	default:
		return nil, apperr.Invalid("period must be daily, weekly or monthly")
	}

	current := bucketStart(period, now)
	starts := make([]time.Time, n)
	for i := 0; i < n; i++ {
		starts[i] = step(current, n-1-i)
	}
	return starts, nil
}

func bucketStart(period string, t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch period {
	case PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case PeriodMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return day
	}
}

func displayDate(period string, start time.Time) string {
	switch period {
	case PeriodWeekly:
		return start.Format("01/02") + "주"
	case PeriodMonthly:
		return start.Format("2006/01")
	default:
		return start.Format("01/02")
	}
}
