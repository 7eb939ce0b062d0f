// Package services contains the upload/download orchestration behind the
// HTTP boundary: the anonymous transfer flow and the owner-scoped flow with
// catalog bookkeeping.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/bundler"
	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/objectkey"
	sc "github.com/dmitrijs2005/filedrop/internal/server/config"
	"github.com/dmitrijs2005/filedrop/internal/sharelink"
)

const (
	defaultContentType = "application/octet-stream"
	bundleDisplayName  = "files.zip"
)

// UploadPart is one multipart payload of an upload operation. In the
// anonymous end-to-end-encrypted flow its Data is already ciphertext; the
// server treats it as opaque either way.
type UploadPart struct {
	Name        string
	ContentType string
	Data        []byte
}

// UploadResult describes a stored upload. ShareURL is the canonical
// download endpoint under the server's public base URL; it carries no key
// material, the sender appends that locally.
type UploadResult struct {
	FileID      string
	URL         string
	ShareURL    string
	Size        int64
	ContentType string
	ExpiresAt   time.Time
}

// DownloadResult carries a re-issued signed GET URL for an existing object.
type DownloadResult struct {
	URL  string
	Size int64
}

// TransferService implements the anonymous single-shot exchange: no
// catalog, no owner, all state travels in the share link. Its collaborators
// are injected once at construction; nothing here builds storage clients
// per request.
type TransferService struct {
	broker Broker
	config *sc.Config
}

func NewTransferService(broker Broker, config *sc.Config) *TransferService {
	return &TransferService{broker: broker, config: config}
}

// Upload stores the parts of one upload operation as a single object and
// returns a signed GET URL valid for the share-link TTL.
//
// One part is stored as-is. Several parts are bundled into a zip archive
// first; the parts are expected to be individually encrypted already
// (encrypt-then-bundle), so the archive exposes names but no contents.
//
// The returned FileID is the object's storage key. Expiry is only the
// signed URL's validity window; the object itself is not auto-deleted.
func (s *TransferService) Upload(ctx context.Context, parts []UploadPart) (*UploadResult, error) {
	data, contentType, displayName, err := flatten(parts)
	if err != nil {
		return nil, err
	}

	key := objectkey.Assign(displayName)

	if err := s.broker.Put(ctx, key.StorageKey, data, contentType, key.DisplayName); err != nil {
		return nil, fmt.Errorf("storing upload: %w", err)
	}

	url, err := s.broker.PresignGet(ctx, key.StorageKey, key.DisplayName, contentType, s.config.ShareLinkTTL)
	if err != nil {
		return nil, fmt.Errorf("signing download url: %w", err)
	}

	expiresAt := time.Now().Add(s.config.ShareLinkTTL)

	share, err := sharelink.Compose(s.config.PublicBaseURL, key.StorageKey, "", expiresAt)
	if err != nil {
		return nil, fmt.Errorf("composing share url: %w", err)
	}

	return &UploadResult{
		FileID:      key.StorageKey,
		URL:         url,
		ShareURL:    share.URL,
		Size:        int64(len(data)),
		ContentType: contentType,
		ExpiresAt:   expiresAt,
	}, nil
}

// Download re-issues a short-lived signed GET URL for an existing object.
// The object's real content type and display name come from a metadata
// probe, never from parsing the key.
func (s *TransferService) Download(ctx context.Context, fileID string) (*DownloadResult, error) {
	info, err := s.broker.Probe(ctx, fileID)
	if err != nil {
		return nil, err
	}

	name := info.DisplayName
	if name == "" {
		// Objects stored before display-name metadata existed.
		name = objectkey.Parse(fileID).DisplayName
	}

	url, err := s.broker.PresignGet(ctx, fileID, name, info.ContentType, s.config.DownloadLinkTTL)
	if err != nil {
		return nil, fmt.Errorf("signing download url: %w", err)
	}

	return &DownloadResult{URL: url, Size: info.Size}, nil
}

// Delete revokes the object behind fileID.
func (s *TransferService) Delete(ctx context.Context, fileID string) error {
	return s.broker.Delete(ctx, fileID)
}

// flatten turns the parts of one upload operation into a single storable
// blob. Zero parts is an input error with no side effect.
//
// Entry names inside a bundle pass through objectkey.SanitizeName before
// archiving. The bundler itself preserves names verbatim; sanitizing here
// keeps client-supplied path separators and dot prefixes out of archives
// that recipients unpack onto their filesystem.
func flatten(parts []UploadPart) (data []byte, contentType string, displayName string, err error) {
	switch len(parts) {
	case 0:
		return nil, "", "", common.ErrorNoFile
	case 1:
		p := parts[0]
		contentType = p.ContentType
		if contentType == "" {
			contentType = defaultContentType
		}
		return p.Data, contentType, p.Name, nil
	default:
		entries := make([]bundler.Entry, 0, len(parts))
		for _, p := range parts {
			entries = append(entries, bundler.Entry{Name: objectkey.SanitizeName(p.Name), Data: p.Data})
		}
		archive, archiveType, err := bundler.Bundle(entries)
		if err != nil {
			return nil, "", "", fmt.Errorf("bundling upload: %w", err)
		}
		return archive, archiveType, bundleDisplayName, nil
	}
}
