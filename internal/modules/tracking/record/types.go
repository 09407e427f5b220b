package record

import (
	"fmt"
	neturl "net/url"
	"strings"

	"github.com/pixelspace/views-core/internal/models"
)

// RecordViewInput is the ingestion contract: one observed view, as submitted
// by the web client, the public API, embeds, or a physical player. Raw IP and
// UserAgent never leave the recorder unhashed.
type RecordViewInput struct {
	ContentID    string  `json:"content_id" binding:"required"`
	ViewerUserID *string `json:"viewer_user_id"`

	IP        string `json:"-"` // filled by the handler from the connection
	UserAgent string `json:"-"` // filled by the handler from the headers

	CountryCode string `json:"country_code" binding:"omitempty,len=2"`
	DeviceType  string `json:"device_type"  binding:"omitempty,oneof=desktop mobile tablet player"`
	ViewSource  string `json:"view_source"  binding:"omitempty,oneof=web api widget player"`
	ViewType    string `json:"view_type"    binding:"omitempty,oneof=intentional listing search widget"`
	Referrer    string `json:"referrer"     binding:"omitempty,url"`

	// Player-originated fields.
	PlayerID       string `json:"player_id"`
	LocalDatetime  string `json:"local_datetime"`
	LocalTimezone  string `json:"local_timezone"`
	PlayOrder      string `json:"play_order" binding:"omitempty,oneof=server created_at random"`
	Channel        string `json:"channel"`
	ChannelContext string `json:"channel_context"`
}

// normalize applies defaults and cross-field rules after binding.
func (in *RecordViewInput) normalize() error {
	if in.DeviceType == "" {
		in.DeviceType = models.DeviceDesktop
	}
	if in.ViewSource == "" {
		in.ViewSource = models.SourceWeb
	}
	if in.ViewType == "" {
		in.ViewType = models.ViewIntentional
	}
	in.CountryCode = strings.ToUpper(strings.TrimSpace(in.CountryCode))

	if in.PlayerID != "" && in.ViewSource != models.SourcePlayer {
		return fmt.Errorf("player_id requires view_source=player")
	}
	if in.ViewSource == models.SourcePlayer && in.PlayerID == "" {
		return fmt.Errorf("player views require player_id")
	}
	return nil
}

// referrerDomain reduces a referrer URL to its bare host for attribution.
func referrerDomain(referrer string) string {
	raw := strings.TrimSpace(referrer)
	if raw == "" {
		return ""
	}
	u, err := neturl.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
