package util

import "time"

// humanTimeLayout matches the timestamp shown on the result page.
const humanTimeLayout = "2006-01-02 15:04:05"

// RFC3339Now returns the current UTC time formatted as RFC3339.
func RFC3339Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// HumanTime returns the current local time for display and emails.
func HumanTime() string {
	return FormatHuman(time.Now())
}

// FormatHuman formats t for display. The zero time yields an empty string.
func FormatHuman(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(humanTimeLayout)
}

// FormatHumanTime converts an RFC3339 build timestamp to display form.
// Values that do not parse are returned unchanged.
func FormatHumanTime(value string) string {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return FormatHuman(t)
}
