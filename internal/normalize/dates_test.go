package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUpstream_ZeroSentinel(t *testing.T) {
	for _, s := range []string{"0000-00-00 00:00:00", "0000-00-00", "", "   "} {
		_, ok := ParseUpstream(s)
		assert.False(t, ok, "input %q must read as unset", s)
	}
}

func TestParseUpstream_NaiveIsUTC(t *testing.T) {
	ts, ok := ParseUpstream("2024-01-15 10:30:00")
	require.True(t, ok)
	assert.Equal(t, "2024-01-15T10:30:00Z", ts.Format("2006-01-02T15:04:05Z07:00"))
}

func TestParseUpstream_OffsetHonored(t *testing.T) {
	ts, ok := ParseUpstream("2024-01-15T10:30:00+02:00")
	require.True(t, ok)
	assert.Equal(t, "2024-01-15T08:30:00Z", ts.UTC().Format("2006-01-02T15:04:05Z07:00"))
}

func TestFormatters_SentinelRendersEmpty(t *testing.T) {
	const zero = "0000-00-00 00:00:00"
	assert.Empty(t, FormatDate(zero))
	assert.Empty(t, FormatShort(zero))
	assert.Empty(t, FormatDateTime(zero))
	assert.Empty(t, DateInput(zero))
	assert.Empty(t, DateTimeInput(zero))
}

func TestFormatDate_WinterOffset(t *testing.T) {
	// 23:30 UTC in January is 00:30 next day in Warsaw (CET, +1).
	assert.Equal(t, "16 sty 2024", FormatDate("2024-01-15 23:30:00"))
	assert.Equal(t, "16 sty", FormatShort("2024-01-15 23:30:00"))
}

func TestFormatDateTime_SummerOffset(t *testing.T) {
	// July is CEST, +2.
	assert.Equal(t, "1 lip 2024, 14:00", FormatDateTime("2024-07-01 12:00:00"))
}

func TestDateInputs(t *testing.T) {
	assert.Equal(t, "2024-03-05", DateInput("2024-03-05"))
	assert.Equal(t, "2024-03-05T13:45", DateTimeInput("2024-03-05 12:45:00"))
}

func TestFormatDate_Unparseable(t *testing.T) {
	assert.Empty(t, FormatDate("not a date"))
}

func TestNowUpstream_Layout(t *testing.T) {
	s := NowUpstream()
	_, ok := ParseUpstream(s)
	assert.True(t, ok, "NowUpstream output must round-trip: %q", s)
}
