package recommend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeBucketFor(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{5, BucketMorning},
		{11, BucketMorning},
		{12, BucketAfternoon},
		{16, BucketAfternoon},
		{17, BucketEvening},
		{20, BucketEvening},
		{21, BucketNight},
		{4, BucketNight},
		{0, BucketNight},
	}
	for _, tc := range cases {
		ts := time.Date(2026, 3, 10, tc.hour, 30, 0, 0, time.UTC)
		assert.Equal(t, tc.want, TimeBucketFor(ts), "hour %d", tc.hour)
	}
}

func TestSeasonFor(t *testing.T) {
	cases := []struct {
		date time.Time
		want string
	}{
		{time.Date(2026, 12, 25, 10, 0, 0, 0, time.UTC), "christmas"},
		{time.Date(2026, 11, 26, 10, 0, 0, 0, time.UTC), "thanksgiving"}, // fourth Thursday
		{time.Date(2026, 10, 31, 10, 0, 0, 0, time.UTC), "halloween"},
		{time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC), "valentines"},
		{time.Date(2026, 7, 4, 10, 0, 0, 0, time.UTC), "independence-day"},
		{time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC), "winter"},
		{time.Date(2026, 4, 10, 10, 0, 0, 0, time.UTC), "spring"},
		{time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC), "summer"},
		{time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC), "fall"},
		{time.Date(2026, 12, 21, 10, 0, 0, 0, time.UTC), "winter"}, // solstice boundary
		{time.Date(2026, 11, 27, 10, 0, 0, 0, time.UTC), "fall"},   // Friday in the window
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SeasonFor(tc.date), tc.date.Format("2006-01-02"))
	}
}

func TestSignatureFor(t *testing.T) {
	ts := time.Date(2026, 12, 25, 9, 0, 0, 0, time.UTC)
	sig := SignatureFor(ts, "Mobile")

	assert.Equal(t, BucketMorning, sig.TimeBucket)
	assert.Equal(t, "christmas", sig.Season)
	assert.Equal(t, "Mobile", sig.Device)

	assert.Equal(t, "device=mobile|season=christmas|time=morning", sig.Canonical())
}
