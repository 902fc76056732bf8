// internal/status/derive.go - Pure derivation helpers shared by the handlers
package status

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Severity is a display classification for a metric value.
type Severity string

const (
	SeverityOK      Severity = "ok"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Kind selects the threshold table used by Classify.
type Kind int

const (
	KindPercent Kind = iota
	KindLoad
	KindQueue
)

const (
	Online  = "online"
	Offline = "offline"
)

// IsOnline reports whether a snapshot is fresh enough to count as online.
// A zero lastUpdateUnix is always offline.
func IsOnline(lastUpdateUnix, now int64, timeout time.Duration) bool {
	return now-lastUpdateUnix < int64(timeout.Seconds())
}

// HumanizeAge renders an age in seconds as "45s ago", "2m ago", "3h ago"
// or "1d ago". Each tier truncates, it does not round.
func HumanizeAge(seconds int64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds ago", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm ago", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh ago", seconds/3600)
	default:
		return fmt.Sprintf("%dd ago", seconds/86400)
	}
}

// KBToGB converts a kilobyte value to gigabytes, rounded to two decimal
// places half-up.
func KBToGB(kb int64) float64 {
	return round2(float64(kb) / 1024 / 1024)
}

// OnlinePercentage returns online/total as a percentage rounded to two
// decimal places, or 0 when total is zero.
func OnlinePercentage(online, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round2(float64(online) / float64(total) * 100)
}

// Classify maps a metric value to a display severity using fixed
// per-kind thresholds.
func Classify(value float64, kind Kind) Severity {
	switch kind {
	case KindPercent:
		if value >= 85 {
			return SeverityDanger
		}
		if value >= 70 {
			return SeverityWarning
		}
	case KindLoad:
		if value > 2.0 {
			return SeverityDanger
		}
		if value > 1.0 {
			return SeverityWarning
		}
	case KindQueue:
		if value > 500 {
			return SeverityDanger
		}
		if value > 100 {
			return SeverityWarning
		}
	}
	return SeverityOK
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// LooseInt coerces a form value to an integer. Malformed input becomes 0
// rather than an error; agents in the field send junk and a push must not
// fail on it.
func LooseInt(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// LooseFloat coerces a form value to a float, 0 on malformed input.
func LooseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

var controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

// SanitizeString trims whitespace and strips control characters from
// submitted identifiers before they reach the store or the logs.
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}
