// Package objectkey derives unique storage keys for uploaded objects and
// recovers display names from them on a best-effort basis.
//
// The storage key is the authoritative identity of an object. The display
// name embedded in it is a naming convenience for humans reading bucket
// listings; the authoritative display name travels as object metadata (and,
// in the authenticated flow, as a catalog column), never parsed back out of
// the key for anything that matters.
package objectkey

import (
	"strings"

	"github.com/google/uuid"
)

// delimiter separates the random identifier segment from the display name.
// A sanitized display name cannot contain it, so Parse is unambiguous.
const delimiter = "/"

// Key identifies an uploaded object.
type Key struct {
	// ID is the random identifier segment, unique per upload operation.
	ID string
	// DisplayName is the sanitized original filename.
	DisplayName string
	// StorageKey is the full object key: ID + "/" + DisplayName.
	StorageKey string
}

// Assign derives a fresh storage key for an upload. Two uploads with the
// same display name always receive distinct keys: the identifier segment is
// a freshly generated UUID.
func Assign(displayName string) Key {
	id := uuid.NewString()
	name := SanitizeName(displayName)

	return Key{
		ID:          id,
		DisplayName: name,
		StorageKey:  id + delimiter + name,
	}
}

// Parse splits a storage key back into its identifier and display name
// segments. Best-effort, for download-page labels only; a key without a
// delimiter yields the whole key as both ID and name.
func Parse(storageKey string) Key {
	id, name, found := strings.Cut(storageKey, delimiter)
	if !found {
		return Key{ID: storageKey, DisplayName: storageKey, StorageKey: storageKey}
	}

	return Key{ID: id, DisplayName: name, StorageKey: storageKey}
}

// SanitizeName strips path separators and leading dots from a client-supplied
// filename so it cannot traverse the key namespace or hide inside another
// object's prefix. An empty result falls back to "file".
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimLeft(name, ".")
	name = strings.TrimSpace(name)

	if name == "" {
		return "file"
	}
	return name
}
