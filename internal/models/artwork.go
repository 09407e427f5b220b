package models

// ArtworkModel is the minimal content table the tracking subsystem needs: it
// gives view events a referent and lets artist-level stats resolve an
// author's full set of artwork ids. The rest of the artwork lifecycle lives
// in the platform's CRUD services.
type ArtworkModel struct {
	Base
	AuthorID    string `json:"author_id"    gorm:"index;not null"`
	Slug        string `json:"slug"         gorm:"uniqueIndex;not null"`
	Title       string `json:"title"`
	IsPublished bool   `json:"is_published" gorm:"default:false;index"`

	// Denormalized lifetime counter bumped by the event recorder; the
	// authoritative numbers live in view_events + content_stats_daily.
	ViewCount int64 `json:"view_count" gorm:"column:view_count;default:0"`
}

func (ArtworkModel) TableName() string { return "artworks" }
