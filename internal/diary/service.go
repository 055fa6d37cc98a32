package diary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/moby/locker"

	"github.com/starford/dailylog/internal/apperr"
	"github.com/starford/dailylog/internal/models"
	"github.com/starford/dailylog/internal/parser"
	"github.com/starford/dailylog/internal/storage"
)

// Status is the result of recording one change event.
type Status string

// Record statuses.
const (
	StatusWritten   Status = "written"
	StatusUnchanged Status = "unchanged"
	StatusSkipped   Status = "skipped"
)

// Outcome describes what Record did with an event.
type Outcome struct {
	Status    Status `json:"status"`
	DiaryPath string `json:"diary_path,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Journal persists one Activity per diary write.
type Journal interface {
	RecordActivity(a models.Activity) error
}

// Notifier is called after each diary write.
type Notifier func(a models.Activity)

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithJournal records written entries into j.
func WithJournal(j Journal) ServiceOption {
	return func(s *Service) { s.journal = j }
}

// WithNotifier registers a callback fired after each diary write.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notify = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the diagnostic logger. It is only used when
// Settings.Debug is on; otherwise diagnostics are discarded.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// Service applies vault change events to the daily log.
type Service struct {
	store    storage.Provider
	settings Settings
	exclude  *Matcher
	journal  Journal
	notify   Notifier
	now      func() time.Time
	logger   *slog.Logger
	diag     *slog.Logger
	locks    *locker.Locker
}

// NewService creates a diary service over store.
func NewService(store storage.Provider, settings Settings, opts ...ServiceOption) (*Service, error) {
	exclude, err := NewMatcher(settings.ExcludedFolders)
	if err != nil {
		return nil, err
	}
	s := &Service{
		store:    store,
		settings: settings,
		exclude:  exclude,
		now:      time.Now,
		logger:   slog.Default(),
		locks:    locker.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.diag = slog.New(slog.DiscardHandler)
	if settings.Debug {
		s.diag = s.logger.With(slog.String("component", "diary"))
	}
	return s, nil
}

// Settings returns the settings the service was built with.
func (s *Service) Settings() Settings {
	return s.settings
}

// Now returns the current time of the service clock.
func (s *Service) Now() time.Time {
	return s.now()
}

// DiaryPath returns the vault path of the daily log for t.
func (s *Service) DiaryPath(t time.Time) string {
	return s.settings.DiaryPath(t)
}

// Handle records ev and swallows every failure into the diagnostic log.
// It is the entry point for the file watcher.
func (s *Service) Handle(ctx context.Context, ev models.ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.diag.Error("diary: panic while recording", slog.String("path", ev.Path), slog.Any("panic", r))
		}
	}()
	if _, err := s.Record(ctx, ev); err != nil {
		s.diag.Warn("diary: record failed",
			slog.String("path", ev.Path),
			slog.String("kind", string(ev.Kind)),
			slog.String("error", err.Error()))
	}
}

// Record applies ev to today's daily log. Events on non-Markdown files, on
// excluded paths, and on the daily log itself are skipped.
func (s *Service) Record(ctx context.Context, ev models.ChangeEvent) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	ev.Path = strings.TrimPrefix(path.Clean(strings.TrimSpace(ev.Path)), "./")
	if ev.Path == "" || ev.Path == "." {
		return Outcome{}, fmt.Errorf("%w: empty path", apperr.ErrInvalidEvent)
	}
	if ev.Kind != models.KindCreated && ev.Kind != models.KindModified {
		return Outcome{}, fmt.Errorf("%w: unknown kind %q", apperr.ErrInvalidEvent, ev.Kind)
	}

	if ev.Extension() != "md" {
		return Outcome{Status: StatusSkipped, Reason: "not markdown"}, nil
	}
	if s.exclude.Excluded(ev.Path) {
		s.diag.Info("diary: skipping excluded file", slog.String("path", ev.Path))
		return Outcome{Status: StatusSkipped, Reason: "excluded folder"}, nil
	}

	now := s.now()
	diaryPath := s.settings.DiaryPath(now)
	if ev.Path == diaryPath {
		s.diag.Info("diary: skipping diary file", slog.String("path", diaryPath))
		return Outcome{Status: StatusSkipped, DiaryPath: diaryPath, Reason: "diary file"}, nil
	}

	s.locks.Lock(diaryPath)
	defer s.locks.Unlock(diaryPath)

	s.diag.Info("diary: processing event", slog.String("kind", string(ev.Kind)), slog.String("path", ev.Path))

	text, err := s.load(diaryPath, now)
	if err != nil {
		return Outcome{}, err
	}

	updated, changed := Reconcile(ev, text, s.settings, now)
	if !changed {
		s.diag.Info("diary: nothing to record", slog.String("name", ev.BaseName()), slog.String("kind", string(ev.Kind)))
		return Outcome{Status: StatusUnchanged, DiaryPath: diaryPath}, nil
	}

	if err := s.store.Write(diaryPath, []byte(updated)); err != nil {
		return Outcome{}, fmt.Errorf("diary: write %s: %w", diaryPath, err)
	}
	s.diag.Info("diary: diary updated", slog.String("diary", diaryPath))

	s.afterWrite(ev, diaryPath, now)
	return Outcome{Status: StatusWritten, DiaryPath: diaryPath}, nil
}

// Read returns the daily log for the day of t.
func (s *Service) Read(ctx context.Context, t time.Time) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	diaryPath := s.settings.DiaryPath(t)
	data, err := s.store.Read(diaryPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return diaryPath, "", apperr.ErrNotFound
		}
		return diaryPath, "", err
	}
	return diaryPath, string(data), nil
}

// load returns the current diary text. For a new diary it returns the
// template or the default skeleton and makes sure the folder exists.
func (s *Service) load(diaryPath string, now time.Time) (string, error) {
	exists, err := s.store.Exists(diaryPath)
	if err != nil {
		return "", fmt.Errorf("diary: stat %s: %w", diaryPath, err)
	}
	s.diag.Info("diary: checking diary file", slog.String("diary", diaryPath), slog.Bool("exists", exists))

	if exists {
		data, err := s.store.Read(diaryPath)
		if err != nil {
			return "", fmt.Errorf("diary: read %s: %w", diaryPath, err)
		}
		return string(data), nil
	}

	text := s.template()
	if text == "" {
		text = s.settings.Skeleton(now)
	}

	if folder := path.Dir(diaryPath); folder != "." {
		ok, err := s.store.Exists(folder)
		if err != nil {
			return "", fmt.Errorf("diary: stat %s: %w", folder, err)
		}
		if !ok {
			if err := s.store.CreateFolder(folder); err != nil {
				return "", fmt.Errorf("diary: create folder %s: %w", folder, err)
			}
			s.diag.Info("diary: created diary folder", slog.String("folder", folder))
		}
	}
	return text, nil
}

// template returns the configured template text, or "" when none is set or
// it cannot be read.
func (s *Service) template() string {
	if s.settings.TemplatePath == "" {
		return ""
	}
	data, err := s.store.Read(s.settings.TemplatePath)
	if err != nil {
		s.diag.Info("diary: template file not found", slog.String("template", s.settings.TemplatePath))
		return ""
	}
	return string(data)
}

func (s *Service) afterWrite(ev models.ChangeEvent, diaryPath string, now time.Time) {
	if s.journal == nil && s.notify == nil {
		return
	}
	a := models.Activity{
		ID:        uuid.NewString(),
		Date:      now.Format(time.DateOnly),
		Path:      ev.Path,
		Name:      ev.BaseName(),
		Title:     s.title(ev.Path),
		Kind:      ev.Kind,
		DiaryPath: diaryPath,
		At:        now,
	}
	if s.journal != nil {
		if err := s.journal.RecordActivity(a); err != nil {
			s.diag.Warn("diary: journal write failed", slog.String("path", ev.Path), slog.String("error", err.Error()))
		}
	}
	if s.notify != nil {
		s.notify(a)
	}
}

// title is the note's own title when the file is readable.
func (s *Service) title(p string) string {
	data, err := s.store.Read(p)
	if err != nil {
		return ""
	}
	return parser.Parse(data).Title
}
