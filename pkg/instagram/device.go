package instagram

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// AppVersion is the Android app version the client presents
	AppVersion = "269.0.0.18.75"
	// AppID is the public application id sent as X-IG-App-ID
	AppID = "567067343352427"
	// BloksVersioningID pins the server-driven UI schema for AppVersion
	BloksVersioningID = "ce555e5500576acd8e84a66018f54a05720f2dce29f0bb5a1f97f0c10d6fac48"
	// DefaultUserAgent mimics a Samsung Galaxy S21 running AppVersion
	DefaultUserAgent = "Instagram " + AppVersion + " Android (31/12; 480dpi; 1080x2400; samsung; SM-G991B; o1s; exynos2100; en_US; 314665256)"
)

// Device is the fingerprint the client presents on every request.
// It is generated once and persisted with the session so that the
// server sees a stable device across runs.
type Device struct {
	UUID              string `json:"uuid"`
	PhoneID           string `json:"phone_id"`
	ClientSessionID   string `json:"client_session_id"`
	AdvertisingID     string `json:"advertising_id"`
	AndroidDeviceID   string `json:"android_device_id"`
	RequestID         string `json:"request_id"`
	TimezoneOffset    int    `json:"timezone_offset"`
	BloksVersioningID string `json:"bloks_versioning_id"`
}

// NewDevice generates a fresh fingerprint
func NewDevice() *Device {
	_, offset := time.Now().Zone()
	return &Device{
		UUID:              uuid.NewString(),
		PhoneID:           uuid.NewString(),
		ClientSessionID:   uuid.NewString(),
		AdvertisingID:     uuid.NewString(),
		AndroidDeviceID:   "android-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		RequestID:         uuid.NewString(),
		TimezoneOffset:    offset,
		BloksVersioningID: BloksVersioningID,
	}
}

// TimezoneOffsetString returns the offset in seconds as the API expects it
func (d *Device) TimezoneOffsetString() string {
	return strconv.Itoa(d.TimezoneOffset)
}

// complete fills fields missing from an older persisted fingerprint
func (d *Device) complete() {
	fresh := NewDevice()
	if d.UUID == "" {
		d.UUID = fresh.UUID
	}
	if d.PhoneID == "" {
		d.PhoneID = fresh.PhoneID
	}
	if d.ClientSessionID == "" {
		d.ClientSessionID = fresh.ClientSessionID
	}
	if d.AdvertisingID == "" {
		d.AdvertisingID = fresh.AdvertisingID
	}
	if d.AndroidDeviceID == "" {
		d.AndroidDeviceID = fresh.AndroidDeviceID
	}
	if d.RequestID == "" {
		d.RequestID = fresh.RequestID
	}
	if d.BloksVersioningID == "" {
		d.BloksVersioningID = BloksVersioningID
	}
}

// SessionState is everything needed to resume an authenticated session
type SessionState struct {
	Username      string    `json:"username"`
	UserID        string    `json:"user_id"`
	Authorization string    `json:"authorization"`
	MID           string    `json:"mid"`
	Device        Device    `json:"device"`
	SavedAt       time.Time `json:"saved_at"`
}

// Authenticated reports whether the state carries a bearer token
func (s *SessionState) Authenticated() bool {
	return s != nil && s.Authorization != ""
}

// SessionStore persists SessionState between runs
type SessionStore interface {
	Load() (*SessionState, error)
	Save(state *SessionState) error
	Delete() error
}
