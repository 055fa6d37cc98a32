// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/dailylog/internal/models"

// Provider is the interface for vault file operations. All paths are
// forward-slash delimited and relative to the vault root.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path. A missing file yields
	// an error wrapping os.ErrNotExist.
	Read(path string) ([]byte, error)
	// Write atomically creates or overwrites the file at path.
	Write(path string, content []byte) error
	// Exists reports whether a file or folder exists at path.
	Exists(path string) (bool, error)
	// CreateFolder creates the folder at path and any missing parents.
	CreateFolder(path string) error
}
