package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// View dimension enums accepted on the ingestion contract.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DevicePlayer  = "player"

	SourceWeb    = "web"
	SourceAPI    = "api"
	SourceWidget = "widget"
	SourcePlayer = "player"

	ViewIntentional = "intentional"
	ViewListing     = "listing"
	ViewSearch      = "search"
	ViewWidget      = "widget"

	PlayOrderServer    = "server"
	PlayOrderCreatedAt = "created_at"
	PlayOrderRandom    = "random"
)

// ViewEventModel is one observed view of an artwork. Rows are ephemeral: the
// rollup job folds anything older than the raw retention window into
// content_stats_daily and hard-deletes the originals. Viewer identity is only
// ever stored as one-way hashes.
//
// The model does not embed Base: append-only rows have no update lifecycle,
// and CreatedAt carries the composite index that backs the rollup scan.
type ViewEventModel struct {
	ID           string  `json:"id"              gorm:"type:char(36);primaryKey"`
	ContentID    string  `json:"content_id"      gorm:"not null;index:idx_content_created,composite:1"`
	ViewerUserID *string `json:"viewer_user_id"  gorm:"index"`
	ViewerIPHash string  `json:"viewer_ip_hash"  gorm:"index;not null"`
	CountryCode  string  `json:"country_code"`
	DeviceType   string  `json:"device_type"`
	ViewSource   string  `json:"view_source"`
	ViewType     string  `json:"view_type"`

	UserAgentHash  string `json:"user_agent_hash"`
	ReferrerDomain string `json:"referrer_domain"`

	// Player-originated fields; empty for web/api/widget views.
	PlayerID       string `json:"player_id,omitempty"       gorm:"index"`
	LocalDatetime  string `json:"local_datetime,omitempty"`
	LocalTimezone  string `json:"local_timezone,omitempty"`
	PlayOrder      string `json:"play_order,omitempty"`
	Channel        string `json:"channel,omitempty"         gorm:"index"`
	ChannelContext string `json:"channel_context,omitempty"`

	// Authoritative for retention and rollup eligibility.
	CreatedAt time.Time `json:"created" gorm:"index:idx_content_created,composite:2"`
}

func (ViewEventModel) TableName() string { return "view_events" }

func (e *ViewEventModel) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

// Authenticated reports whether the view came from a signed-in user.
func (e ViewEventModel) Authenticated() bool {
	return e.ViewerUserID != nil && *e.ViewerUserID != ""
}

// Day returns the UTC date bucket this event aggregates into.
func (e ViewEventModel) Day() time.Time {
	return DayOf(e.CreatedAt)
}

// DayOf truncates a timestamp to its UTC date.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
