package diary

import (
	"time"

	"github.com/nleeper/goment"
)

// FormatDate renders t with a moment.js format string (YYYY, MM, Do, dddd,
// Q, [literal] and the rest of the moment token set). An empty format means
// DefaultDateFormat.
func FormatDate(t time.Time, format string) string {
	if format == "" {
		format = DefaultDateFormat
	}
	g, err := goment.New(t)
	if err != nil {
		return t.Format(time.DateOnly)
	}
	return g.Format(format)
}
