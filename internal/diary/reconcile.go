package diary

import (
	"strings"
	"time"

	"github.com/starford/dailylog/internal/models"
)

// Document is a daily log split into its three zones. Created and Edited
// include their section title when non-empty.
type Document struct {
	Header  string
	Created string
	Edited  string
}

// Split partitions text by the first occurrence of each section title.
// Whatever order the titles appear in, the text following the created title
// lands in Created and the text following the edited title in Edited.
func Split(text string, s Settings, now time.Time) Document {
	ci := strings.Index(text, s.CreatedTitle)
	ei := strings.Index(text, s.EditedTitle)

	var d Document
	switch {
	case ci < 0 && ei < 0:
		d.Header = strings.TrimSpace(text)
		if d.Header == "" {
			d.Header = s.defaultHeader(now)
		}
	case ci < 0:
		d.Header = strings.TrimSpace(text[:ei])
		d.Edited = strings.TrimSpace(text[ei:])
	case ei < 0:
		d.Header = strings.TrimSpace(text[:ci])
		d.Created = strings.TrimSpace(text[ci:])
	case ci < ei:
		d.Header = strings.TrimSpace(text[:ci])
		d.Created = strings.TrimSpace(text[ci:ei])
		d.Edited = strings.TrimSpace(text[ei:])
	default:
		d.Header = strings.TrimSpace(text[:ei])
		d.Edited = strings.TrimSpace(text[ei:ci])
		d.Created = strings.TrimSpace(text[ci:])
	}
	return d
}

// Render reassembles the document in canonical order: header, created
// zone, edited zone, separated by blank lines, with a trailing newline.
// The header's blank line is written even when the header is empty.
func (d Document) Render(s Settings) string {
	created := d.Created
	if created == "" {
		created = s.CreatedTitle
	}
	edited := d.Edited
	if edited == "" {
		edited = s.EditedTitle
	}
	var b strings.Builder
	b.WriteString(d.Header)
	b.WriteString("\n\n")
	b.WriteString(created)
	b.WriteString("\n\n")
	b.WriteString(edited)
	b.WriteString("\n")
	return b.String()
}

// Reconcile merges ev into the daily log text and returns the new text. The
// boolean is false when the event must not touch the document: a duplicate
// creation, or an edit less than a minute after the same-day creation.
func Reconcile(ev models.ChangeEvent, text string, s Settings, now time.Time) (string, bool) {
	d := Split(text, s, now)
	name := ev.BaseName()
	clock := now.Format(clockLayout)

	switch ev.Kind {
	case models.KindCreated:
		if strings.Contains(d.Created, linkToken(name)) {
			return text, false
		}
		d.Created = appendLine(d.Created, s.CreatedTitle, createdEntry(name, clock))

	case models.KindModified:
		lines := strings.Split(d.Created, "\n")
		if i, e, ok := findEntry(lines, name, isCreated); ok {
			createdAt, err := clockAt(now, e.created)
			if err != nil {
				return text, false
			}
			nowMinute := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), 0, 0, now.Location())
			if nowMinute.Sub(createdAt) < time.Minute {
				return text, false
			}
			lines[i] = lines[i][:e.start] + mergedEntry(name, e.created, clock) + lines[i][e.end:]
			d.Created = strings.Join(lines, "\n")
			break
		}

		if d.Edited == "" {
			d.Edited = s.EditedTitle
		}
		if !strings.Contains(d.Edited, linkToken(name)) {
			d.Edited = appendLine(d.Edited, s.EditedTitle, editedEntry(name, clock))
			break
		}
		lines = strings.Split(d.Edited, "\n")
		if i, e, ok := findEntry(lines, name, isEdited); ok {
			lines[i] = lines[i][:e.start] + editedEntry(name, clock) + lines[i][e.end:]
			d.Edited = strings.Join(lines, "\n")
		}

	default:
		return text, false
	}

	out := d.Render(s)
	return out, out != text
}

func appendLine(zone, title, line string) string {
	zone = strings.TrimSpace(zone)
	if zone == "" {
		zone = title
	}
	return zone + "\n" + line
}
