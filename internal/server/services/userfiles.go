package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/dbx"
	"github.com/dmitrijs2005/filedrop/internal/objectkey"
	sc "github.com/dmitrijs2005/filedrop/internal/server/config"
	"github.com/dmitrijs2005/filedrop/internal/server/models"
	"github.com/dmitrijs2005/filedrop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filedrop/internal/sharelink"
	"github.com/google/uuid"
)

// FileView is a catalog row decorated with a signed download URL, as
// returned by List.
type FileView struct {
	ID          string
	DisplayName string
	ContentType string
	Size        int64
	CreatedAt   time.Time
	URL         string
}

// UploadTarget is a presigned direct-upload instruction.
type UploadTarget struct {
	FileID string
	URL    string
}

// UserFileService is the owner-scoped flow: the same storage primitives as
// the anonymous flow plus catalog bookkeeping. Content may arrive plain or
// encrypted; the server stores whatever bytes it is given and records only
// addressing metadata.
type UserFileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	broker      Broker
	config      *sc.Config
}

func NewUserFileService(db *sql.DB, repomanager repomanager.RepositoryManager, broker Broker, config *sc.Config) *UserFileService {
	return &UserFileService{
		db:          db,
		repomanager: repomanager,
		broker:      broker,
		config:      config,
	}
}

// Upload stores the parts as one object and catalogs it under ownerID.
//
// Ordering: the object is stored first, the record created second. A failed
// PUT therefore leaves no record; a failed insert after a successful PUT
// leaves an orphaned object in storage. That gap is accepted here; cleaning
// it up needs a reconciliation sweep, which this core does not include.
func (s *UserFileService) Upload(ctx context.Context, ownerID string, parts []UploadPart) (*UploadResult, error) {
	data, contentType, displayName, err := flatten(parts)
	if err != nil {
		return nil, err
	}

	key := objectkey.Assign(displayName)

	if err := s.broker.Put(ctx, key.StorageKey, data, contentType, key.DisplayName); err != nil {
		return nil, fmt.Errorf("storing upload: %w", err)
	}

	record := &models.File{
		ID:          uuid.NewString(),
		UserID:      ownerID,
		DisplayName: key.DisplayName,
		StorageKey:  key.StorageKey,
		ContentType: contentType,
		Size:        int64(len(data)),
		CreatedAt:   time.Now(),
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Files(tx).Create(ctx, record)
	})
	if err != nil {
		return nil, fmt.Errorf("cataloging upload: %w", err)
	}

	url, err := s.broker.PresignGet(ctx, key.StorageKey, key.DisplayName, contentType, s.config.ShareLinkTTL)
	if err != nil {
		return nil, fmt.Errorf("signing download url: %w", err)
	}

	expiresAt := time.Now().Add(s.config.ShareLinkTTL)

	share, err := sharelink.Compose(s.config.PublicBaseURL, record.ID, "", expiresAt)
	if err != nil {
		return nil, fmt.Errorf("composing share url: %w", err)
	}

	return &UploadResult{
		FileID:      record.ID,
		URL:         url,
		ShareURL:    share.URL,
		Size:        record.Size,
		ContentType: contentType,
		ExpiresAt:   expiresAt,
	}, nil
}

// List returns the owner's catalog records, each with a freshly signed
// download URL. URL issuance is independent per record; order follows the
// catalog (newest first).
func (s *UserFileService) List(ctx context.Context, ownerID string) ([]*FileView, error) {
	records, err := s.repomanager.Files(s.db).ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	views := make([]*FileView, 0, len(records))
	for _, rec := range records {
		url, err := s.broker.PresignGet(ctx, rec.StorageKey, rec.DisplayName, rec.ContentType, s.config.DownloadLinkTTL)
		if err != nil {
			return nil, fmt.Errorf("signing download url for %s: %w", rec.ID, err)
		}
		views = append(views, &FileView{
			ID:          rec.ID,
			DisplayName: rec.DisplayName,
			ContentType: rec.ContentType,
			Size:        rec.Size,
			CreatedAt:   rec.CreatedAt,
			URL:         url,
		})
	}

	return views, nil
}

// Download re-issues a signed GET URL for one owned record. A record owned
// by someone else is reported as missing, not as forbidden, so record ids
// leak nothing.
func (s *UserFileService) Download(ctx context.Context, ownerID string, fileID string) (*DownloadResult, error) {
	rec, err := s.ownedRecord(ctx, ownerID, fileID)
	if err != nil {
		return nil, err
	}

	url, err := s.broker.PresignGet(ctx, rec.StorageKey, rec.DisplayName, rec.ContentType, s.config.DownloadLinkTTL)
	if err != nil {
		return nil, fmt.Errorf("signing download url: %w", err)
	}

	return &DownloadResult{URL: url, Size: rec.Size}, nil
}

// Delete revokes the object and removes its catalog record. An object
// already gone from storage does not block removing the record; the record
// is authoritative for the authenticated flow.
func (s *UserFileService) Delete(ctx context.Context, ownerID string, fileID string) error {
	rec, err := s.ownedRecord(ctx, ownerID, fileID)
	if err != nil {
		return err
	}

	if err := s.broker.Delete(ctx, rec.StorageKey); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("revoking object: %w", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Files(tx).Delete(ctx, rec.ID)
	})
	if err != nil {
		return fmt.Errorf("removing record: %w", err)
	}

	return nil
}

// IssueUploadTarget catalogs a pending upload and returns a one-shot
// presigned PUT URL, so large payloads go straight to the store instead of
// through this server.
func (s *UserFileService) IssueUploadTarget(ctx context.Context, ownerID string, displayName string, contentType string, size int64) (*UploadTarget, error) {
	if displayName == "" {
		return nil, common.ErrorNoFile
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	key := objectkey.Assign(displayName)

	url, err := s.broker.PresignPut(ctx, key.StorageKey, contentType, s.config.DownloadLinkTTL)
	if err != nil {
		return nil, fmt.Errorf("signing upload url: %w", err)
	}

	record := &models.File{
		ID:          uuid.NewString(),
		UserID:      ownerID,
		DisplayName: key.DisplayName,
		StorageKey:  key.StorageKey,
		ContentType: contentType,
		Size:        size,
		CreatedAt:   time.Now(),
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Files(tx).Create(ctx, record)
	})
	if err != nil {
		return nil, fmt.Errorf("cataloging upload target: %w", err)
	}

	return &UploadTarget{FileID: record.ID, URL: url}, nil
}

func (s *UserFileService) ownedRecord(ctx context.Context, ownerID string, fileID string) (*models.File, error) {
	rec, err := s.repomanager.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if rec.UserID != ownerID {
		return nil, common.ErrorNotFound
	}
	return rec, nil
}
