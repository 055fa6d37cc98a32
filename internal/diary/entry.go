package diary

import (
	"strings"
	"time"
)

const (
	clockLayout   = "15:04"
	createdSuffix = " created)"
	editedSuffix  = " edited)"
	mergeInfix    = " | ("
)

// entry is one parsed entry occurrence inside a line. start and end delimit
// the entry text so the rest of the line survives a rewrite.
type entry struct {
	created string // HH:MM, empty for a plain edited entry
	edited  string // HH:MM, empty for a plain created entry
	start   int
	end     int
}

func linkToken(name string) string {
	return "[[" + name + "]]"
}

func entryPrefix(name string) string {
	return "- " + linkToken(name) + " ("
}

func createdEntry(name, clock string) string {
	return entryPrefix(name) + clock + createdSuffix
}

func editedEntry(name, clock string) string {
	return entryPrefix(name) + clock + editedSuffix
}

func mergedEntry(name, created, edited string) string {
	return createdEntry(name, created) + mergeInfix + edited + editedSuffix
}

// cutClock consumes a leading "HH:MM".
func cutClock(s string) (clock, rest string, ok bool) {
	if len(s) < 5 || s[2] != ':' {
		return "", s, false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return "", s, false
		}
	}
	return s[:5], s[5:], true
}

// parseEntry finds the entry for name in line. Names are matched as literal
// text, so brackets or regex metacharacters in file names are harmless.
func parseEntry(line, name string) (entry, bool) {
	prefix := entryPrefix(name)
	start := strings.Index(line, prefix)
	if start < 0 {
		return entry{}, false
	}
	clock, rest, ok := cutClock(line[start+len(prefix):])
	if !ok {
		return entry{}, false
	}

	var e entry
	switch {
	case strings.HasPrefix(rest, createdSuffix):
		e.created = clock
		rest = rest[len(createdSuffix):]
		if after, found := strings.CutPrefix(rest, mergeInfix); found {
			if edited, tail, ok := cutClock(after); ok && strings.HasPrefix(tail, editedSuffix) {
				e.edited = edited
				rest = tail[len(editedSuffix):]
			}
		}
	case strings.HasPrefix(rest, editedSuffix):
		e.edited = clock
		rest = rest[len(editedSuffix):]
	default:
		return entry{}, false
	}
	e.start = start
	e.end = len(line) - len(rest)
	return e, true
}

// findEntry returns the index of the first line holding an entry for name
// that satisfies match.
func findEntry(lines []string, name string, match func(entry) bool) (int, entry, bool) {
	for i, line := range lines {
		if e, ok := parseEntry(line, name); ok && match(e) {
			return i, e, true
		}
	}
	return -1, entry{}, false
}

func isCreated(e entry) bool { return e.created != "" }

func isEdited(e entry) bool { return e.created == "" && e.edited != "" }

// clockAt returns today's date (in now's location) at the given HH:MM.
func clockAt(now time.Time, clock string) (time.Time, error) {
	c, err := time.Parse(clockLayout, clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(now.Year(), now.Month(), now.Day(), c.Hour(), c.Minute(), 0, 0, now.Location()), nil
}
