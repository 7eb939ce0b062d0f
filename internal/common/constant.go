// Package common contains shared constants and sentinel errors used across
// FileDrop components.
package common

// KeyQueryParam is the share-link query parameter carrying the encoded
// decryption key. Its value is sensitive and must never be logged.
const KeyQueryParam = "key"

// ZipContentType is the content type assigned to bundled uploads.
const ZipContentType = "application/zip"
