package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordViewInput_Normalize(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		in := RecordViewInput{ContentID: "art-1", CountryCode: " de "}
		require.NoError(t, in.normalize())

		assert.Equal(t, "desktop", in.DeviceType)
		assert.Equal(t, "web", in.ViewSource)
		assert.Equal(t, "intentional", in.ViewType)
		assert.Equal(t, "DE", in.CountryCode)
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		in := RecordViewInput{
			ContentID:  "art-1",
			DeviceType: "mobile",
			ViewSource: "widget",
			ViewType:   "listing",
		}
		require.NoError(t, in.normalize())

		assert.Equal(t, "mobile", in.DeviceType)
		assert.Equal(t, "widget", in.ViewSource)
		assert.Equal(t, "listing", in.ViewType)
	})

	t.Run("player_id without player source is rejected", func(t *testing.T) {
		in := RecordViewInput{ContentID: "art-1", PlayerID: "p-1", ViewSource: "web"}
		assert.Error(t, in.normalize())
	})

	t.Run("player source without player_id is rejected", func(t *testing.T) {
		in := RecordViewInput{ContentID: "art-1", ViewSource: "player"}
		assert.Error(t, in.normalize())
	})

	t.Run("player view with matching fields passes", func(t *testing.T) {
		in := RecordViewInput{ContentID: "art-1", ViewSource: "player", PlayerID: "p-1", DeviceType: "player"}
		require.NoError(t, in.normalize())
	})
}

func TestReferrerDomain(t *testing.T) {
	tests := []struct {
		referrer string
		want     string
	}{
		{"https://www.example.com/some/page?q=1", "example.com"},
		{"http://Blog.Example.org", "blog.example.org"},
		{"https://example.com:8443/x", "example.com"},
		{"not a url", ""},
		{"", ""},
		{"   ", ""},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, referrerDomain(tc.referrer), "referrer %q", tc.referrer)
	}
}
