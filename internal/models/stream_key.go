package models

import "fmt"

// Platform identifies the streaming destination a key publishes to.
type Platform string

// Supported streaming platforms.
const (
	PlatformYouTube   Platform = "youtube"
	PlatformTwitch    Platform = "twitch"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformCustom    Platform = "custom"
)

// defaultIngestURLs maps each platform to its RTMP ingest endpoint.
// PlatformCustom has no default; it requires an explicit IngestURL.
var defaultIngestURLs = map[Platform]string{
	PlatformYouTube:   "rtmp://a.rtmp.youtube.com/live2",
	PlatformTwitch:    "rtmp://live.twitch.tv/app",
	PlatformFacebook:  "rtmps://live-api-s.facebook.com:443/rtmp",
	PlatformInstagram: "rtmps://live-upload.instagram.com:443/rtmp",
	PlatformTikTok:    "rtmp://push.tiktokcdn.com/live",
}

// StreamKey is a destination credential: the secret ingest key a session
// uses to publish to a streaming platform. Consumed read-only by the live
// session controller; a session whose key is missing or inactive can
// never start.
type StreamKey struct {
	BaseModel

	// UserID is the owning account.
	UserID ULID `gorm:"not null;index;type:varchar(26)" json:"user_id"`

	// Name is a user-friendly label for the key.
	Name string `gorm:"not null;size:100" json:"name"`

	// Key is the secret stream key issued by the platform.
	Key string `gorm:"not null;size:500" json:"key"`

	// Platform is the destination this key publishes to.
	Platform Platform `gorm:"not null;default:'youtube';size:20" json:"platform"`

	// IngestURL optionally overrides the platform's default ingest endpoint.
	// Required for PlatformCustom.
	IngestURL string `gorm:"size:512" json:"ingest_url,omitempty"`

	// IsActive indicates the key may be used for new broadcasts.
	IsActive bool `gorm:"default:true" json:"is_active"`
}

// TableName overrides the table name.
func (StreamKey) TableName() string {
	return "stream_keys"
}

// Validate checks the stream key for required fields.
func (k *StreamKey) Validate() error {
	if k.UserID.IsZero() {
		return ErrUserIDRequired
	}
	if k.Name == "" {
		return ErrKeyNameRequired
	}
	if k.Key == "" {
		return ErrKeyRequired
	}
	switch k.Platform {
	case PlatformYouTube, PlatformTwitch, PlatformFacebook, PlatformInstagram, PlatformTikTok:
	case PlatformCustom:
		if k.IngestURL == "" {
			return ErrValidation{Field: "ingest_url", Message: "required for custom platform"}
		}
	default:
		return ErrInvalidPlatform
	}
	return nil
}

// RTMPURL builds the full destination URL the transcoder publishes to:
// the platform ingest endpoint with the secret key appended.
func (k *StreamKey) RTMPURL() string {
	base := k.IngestURL
	if base == "" {
		base = defaultIngestURLs[k.Platform]
	}
	return fmt.Sprintf("%s/%s", base, k.Key)
}
