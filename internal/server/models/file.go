// Package models defines server-side data models persisted in the database.
package models

import "time"

// File is the catalog record for an uploaded object in the authenticated
// flow. The (possibly encrypted) content itself lives in object storage;
// the record only carries addressing metadata.
type File struct {
	// ID is the record identifier (UUID).
	ID string
	// UserID is the owner of the file, an opaque principal id.
	UserID string
	// DisplayName is the original filename, stored as a first-class field
	// rather than re-derived from the storage key.
	DisplayName string
	// StorageKey is the object-storage key of the stored blob. It is the
	// single source of truth for GET/HEAD/DELETE.
	StorageKey string
	// ContentType is the stored object's content type.
	ContentType string
	// Size is the stored object's size in bytes.
	Size int64
	// CreatedAt is when the record was created.
	CreatedAt time.Time
}
