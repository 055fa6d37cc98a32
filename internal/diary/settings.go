// Package diary maintains the per-day log note that lists which vault notes
// were created and edited on that day.
//
// Reconcile is the pure text merge. Service wraps it with the vault glue:
// filtering, template fallback, folder creation, per-document locking and
// the debug-gated diagnostic log.
package diary

import (
	"path"
	"strings"
	"time"
)

// Default settings.
const (
	DefaultFolder       = "日记"
	DefaultCreatedTitle = "## 当日创建文件"
	DefaultEditedTitle  = "## 当日编辑文件"
	DefaultDateFormat   = "YYYY-MM-DD"

	headerSuffix = "日记"
)

// Settings is the configuration of one reconciliation. It is passed by value
// and never mutated while a call is in flight.
type Settings struct {
	Folder          string
	CreatedTitle    string
	EditedTitle     string
	DateFormat      string
	TemplatePath    string
	ExcludedFolders []string
	Debug           bool
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Folder:       DefaultFolder,
		CreatedTitle: DefaultCreatedTitle,
		EditedTitle:  DefaultEditedTitle,
		DateFormat:   DefaultDateFormat,
	}
}

// DiaryPath returns the vault path of the daily log for t.
func (s Settings) DiaryPath(t time.Time) string {
	return path.Join(s.Folder, FormatDate(t, s.DateFormat)+".md")
}

// headerDate is the formatted date without any folder segments, so
// "YYYY/MM/YYYY-MM-DD" renders as "2025-01-20" in the heading.
func (s Settings) headerDate(t time.Time) string {
	formatted := FormatDate(t, s.DateFormat)
	if i := strings.LastIndex(formatted, "/"); i >= 0 {
		return formatted[i+1:]
	}
	return formatted
}

func (s Settings) defaultHeader(t time.Time) string {
	return "# " + s.headerDate(t) + " " + headerSuffix
}

// Skeleton is the document used for a new diary when no template is set.
func (s Settings) Skeleton(t time.Time) string {
	return s.defaultHeader(t) + "\n" + s.CreatedTitle + "\n\n" + s.EditedTitle + "\n"
}
