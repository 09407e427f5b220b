package models

import "time"

// ContentStatsDailyModel is the durable daily rollup, one row per
// (content_id, date). Created and merged only by the rollup job.
//
// UniqueViewers becomes an approximation once two partial batches merged into
// the same row: distinct ip-hash sets cannot be deduplicated across merges.
type ContentStatsDailyModel struct {
	Base
	ContentID string    `json:"content_id" gorm:"not null;uniqueIndex:idx_content_date,composite:1"`
	Date      time.Time `json:"date"       gorm:"type:date;not null;uniqueIndex:idx_content_date,composite:2"`

	TotalViews    int64 `json:"total_views"    gorm:"not null;default:0"`
	UniqueViewers int64 `json:"unique_viewers" gorm:"not null;default:0"`

	ViewsByCountry CounterMap `json:"views_by_country" gorm:"serializer:json;type:longtext"`
	ViewsByDevice  CounterMap `json:"views_by_device"  gorm:"serializer:json;type:longtext"`
	ViewsByType    CounterMap `json:"views_by_type"    gorm:"serializer:json;type:longtext"`
}

func (ContentStatsDailyModel) TableName() string { return "content_stats_daily" }
