package models

import "time"

// Stats cache scopes. Post and artist entries share the table; the scope
// keeps their key spaces apart.
const (
	StatsScopePost   = "post"
	StatsScopeArtist = "artist"
)

// ContentStatsCacheModel is the durable fallback tier of the stats cache: one
// row per (scope, subject), holding the serialized stats object the fast tier
// would otherwise serve. Written on every cache miss, pruned by the hourly
// cleanup job once ExpiresAt has passed.
type ContentStatsCacheModel struct {
	Base
	Scope      string    `json:"scope"      gorm:"not null;default:post;uniqueIndex:idx_scope_subject,composite:1"`
	SubjectID  string    `json:"subject_id" gorm:"not null;uniqueIndex:idx_scope_subject,composite:2"`
	Payload    string    `json:"payload"    gorm:"type:longtext"`
	ComputedAt time.Time `json:"computed_at"`
	ExpiresAt  time.Time `json:"expires_at" gorm:"index"`
}

func (ContentStatsCacheModel) TableName() string { return "content_stats_cache" }

// Expired reports whether the entry is past its lifetime at the given instant.
func (m ContentStatsCacheModel) Expired(now time.Time) bool {
	return now.After(m.ExpiresAt)
}
