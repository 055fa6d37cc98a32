// Package models defines the domain types shared across dailylog packages.
package models

import (
	"path"
	"strings"
	"time"
)

// Kind is the type of a vault change.
type Kind string

// Change kinds.
const (
	KindCreated  Kind = "created"
	KindModified Kind = "modified"
)

// ParseKind accepts "created"/"create" and "modified"/"modify"/"edited".
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "created", "create":
		return KindCreated, true
	case "modified", "modify", "edited":
		return KindModified, true
	}
	return "", false
}

// ChangeEvent is a single file-system change inside the vault.
// Path is vault-relative and forward-slash delimited.
type ChangeEvent struct {
	Path string `json:"path"`
	Kind Kind   `json:"kind"`
}

// Extension returns the file extension without the leading dot.
func (e ChangeEvent) Extension() string {
	return strings.TrimPrefix(path.Ext(e.Path), ".")
}

// BaseName returns the file name without folder and extension.
func (e ChangeEvent) BaseName() string {
	base := path.Base(e.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}

// FileMetadata is a lightweight representation returned by list operations.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Activity is one journal row, recorded after each successful diary write.
type Activity struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"` // "2025-02-20"
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Title     string    `json:"title,omitempty"`
	Kind      Kind      `json:"kind"`
	DiaryPath string    `json:"diary_path"`
	At        time.Time `json:"at"`
}
