package normalize

import (
	"fmt"
	"strings"
	"time"

	_ "time/tzdata" // container images rarely carry a zoneinfo dir
)

// The upstream stores naive local-feeling timestamps; the UI renders
// everything in this zone.
const displayZone = "Europe/Warsaw"

var warsaw = mustLoadZone(displayZone)

func mustLoadZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// plMonthsShort are the Polish short month names used by every user-facing
// date format.
var plMonthsShort = [...]string{"sty", "lut", "mar", "kwi", "maj", "cze", "lip", "sie", "wrz", "paź", "lis", "gru"}

var naiveLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseUpstream parses an upstream date value. The all-zero sentinel and
// empty input report ok=false ("unset"), never an error or the epoch.
// Naive strings are taken as UTC; offset-carrying strings are honored.
func ParseUpstream(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "0000-00-00") {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders "2 sty 2006" in the display zone, or "" when unset.
func FormatDate(s string) string {
	t, ok := ParseUpstream(s)
	if !ok {
		return ""
	}
	t = t.In(warsaw)
	return fmt.Sprintf("%d %s %d", t.Day(), plMonthsShort[t.Month()-1], t.Year())
}

// FormatShort renders "2 sty" in the display zone, or "" when unset.
func FormatShort(s string) string {
	t, ok := ParseUpstream(s)
	if !ok {
		return ""
	}
	t = t.In(warsaw)
	return fmt.Sprintf("%d %s", t.Day(), plMonthsShort[t.Month()-1])
}

// FormatDateTime renders "2 sty 2006, 15:04" in the display zone.
func FormatDateTime(s string) string {
	t, ok := ParseUpstream(s)
	if !ok {
		return ""
	}
	t = t.In(warsaw)
	return fmt.Sprintf("%d %s %d, %02d:%02d", t.Day(), plMonthsShort[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

// DateInput renders "2006-01-02" for date form inputs.
func DateInput(s string) string {
	t, ok := ParseUpstream(s)
	if !ok {
		return ""
	}
	return t.In(warsaw).Format("2006-01-02")
}

// DateTimeInput renders "2006-01-02T15:04" for datetime-local form inputs.
func DateTimeInput(s string) string {
	t, ok := ParseUpstream(s)
	if !ok {
		return ""
	}
	return t.In(warsaw).Format("2006-01-02T15:04")
}

// NowUpstream renders the current display-zone time in the naive layout the
// upstream expects on writes.
func NowUpstream() string {
	return time.Now().In(warsaw).Format("2006-01-02T15:04:05")
}
