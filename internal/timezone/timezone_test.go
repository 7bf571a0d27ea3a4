package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		zone    string
		wantErr bool
	}{
		{"utc", "UTC", false},
		{"region zone", "Europe/Oslo", false},
		{"us zone", "America/New_York", false},
		{"empty defaults to utc", "", false},
		{"garbage", "Mars/Olympus_Mons", true},
		{"offset string", "+02:00", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.zone)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "invalid timezone")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_EmptyIsUTC(t *testing.T) {
	loc, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_Unknown(t *testing.T) {
	_, err := Load("Atlantis/Capital")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load timezone")
}

func TestConvert(t *testing.T) {
	// 12:00 UTC is 13:00 in Oslo during winter (CET, UTC+1).
	utc := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	converted, err := Convert(utc, "Europe/Oslo")
	require.NoError(t, err)
	assert.Equal(t, 13, converted.Hour())
	assert.True(t, converted.Equal(utc), "conversion must preserve the instant")
}

func TestConvert_DST(t *testing.T) {
	// 12:00 UTC is 14:00 in Oslo during summer (CEST, UTC+2).
	utc := time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC)

	converted, err := Convert(utc, "Europe/Oslo")
	require.NoError(t, err)
	assert.Equal(t, 14, converted.Hour())
}

func TestFormat(t *testing.T) {
	utc := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	s, err := Format(utc, "Europe/Oslo")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-15T13:00:00+01:00", s)

	s, err = Format(utc, "")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-15T12:00:00Z", s)
}
