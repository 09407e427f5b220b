package stats

import (
	"time"

	"github.com/pixelspace/views-core/internal/models"
)

// TrendPoint is one day of the daily trend series.
type TrendPoint struct {
	Date  string `json:"date"` // 2006-01-02, UTC
	Views int64  `json:"views"`
}

// Breakdown is the dimensional slice shared by every stats shape.
type Breakdown struct {
	TotalViews     int64             `json:"total_views"`
	UniqueViewers  int64             `json:"unique_viewers"`
	ViewsByCountry models.CounterMap `json:"views_by_country"`
	ViewsByDevice  models.CounterMap `json:"views_by_device"`
	ViewsByType    models.CounterMap `json:"views_by_type"`
}

// PostStats is the full statistics object for one artwork: a trend-window
// view combining raw events (the retention window) with daily aggregates
// (older days), plus an authenticated-only variant. The daily stores do not
// separate signed-in viewers, so the authenticated slice is only as complete
// as the raw window.
type PostStats struct {
	ContentID string `json:"content_id"`
	Breakdown
	Authenticated Breakdown    `json:"authenticated"`
	DailyTrend    []TrendPoint `json:"daily_trend"`
	ComputedAt    time.Time    `json:"computed_at"`
}

// ArtworkTotal is one artwork's share of an artist rollup.
type ArtworkTotal struct {
	ContentID  string `json:"content_id"`
	TotalViews int64  `json:"total_views"`
}

// ArtistStats is PostStats summed across every artwork one author owns.
type ArtistStats struct {
	ArtistID     string `json:"artist_id"`
	ArtworkCount int    `json:"artwork_count"`
	Breakdown
	Authenticated Breakdown      `json:"authenticated"`
	DailyTrend    []TrendPoint   `json:"daily_trend"`
	ByArtwork     []ArtworkTotal `json:"by_artwork"`
	ComputedAt    time.Time      `json:"computed_at"`
}

func emptyBreakdown() Breakdown {
	return Breakdown{
		ViewsByCountry: models.CounterMap{},
		ViewsByDevice:  models.CounterMap{},
		ViewsByType:    models.CounterMap{},
	}
}
