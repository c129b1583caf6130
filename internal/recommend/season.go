package recommend

import (
	"time"

	"github.com/brimstore/recsys/pkg/models"
)

// Time-of-day buckets used in context signatures.
const (
	BucketMorning   = "morning"   // 05:00 - 11:59
	BucketAfternoon = "afternoon" // 12:00 - 16:59
	BucketEvening   = "evening"   // 17:00 - 20:59
	BucketNight     = "night"     // 21:00 - 04:59
)

// SignatureFor derives the canonical context signature for a request:
// device from the caller, time bucket and season from the clock.
func SignatureFor(now time.Time, device string) models.ContextSignature {
	return models.ContextSignature{
		TimeBucket: TimeBucketFor(now),
		Device:     device,
		Season:     SeasonFor(now),
	}
}

// TimeBucketFor maps an hour of day to its bucket.
func TimeBucketFor(t time.Time) string {
	switch hour := t.Hour(); {
	case hour >= 5 && hour < 12:
		return BucketMorning
	case hour >= 12 && hour < 17:
		return BucketAfternoon
	case hour >= 17 && hour < 21:
		return BucketEvening
	default:
		return BucketNight
	}
}

// SeasonFor returns the shopping season for a date. Holiday specials take
// precedence over astronomical seasons, which follow solstice and equinox
// boundaries.
func SeasonFor(t time.Time) string {
	month, day := t.Month(), t.Day()

	switch {
	case month == time.December && day >= 24 && day <= 26:
		return "christmas"
	case month == time.November && day >= 22 && day <= 28 && t.Weekday() == time.Thursday:
		return "thanksgiving"
	case month == time.October && day == 31:
		return "halloween"
	case month == time.February && day == 14:
		return "valentines"
	case month == time.July && day == 4:
		return "independence-day"
	}

	switch {
	case (month == time.December && day >= 21) || month == time.January || month == time.February || (month == time.March && day < 20):
		return "winter"
	case (month == time.March && day >= 20) || month == time.April || month == time.May || (month == time.June && day < 21):
		return "spring"
	case (month == time.June && day >= 21) || month == time.July || month == time.August || (month == time.September && day < 22):
		return "summer"
	default:
		return "fall"
	}
}
