package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/dbx"
	"github.com/dmitrijs2005/filedrop/internal/server/models"
	"github.com/dmitrijs2005/filedrop/internal/server/repositories/files"
	"github.com/dmitrijs2005/filedrop/internal/server/repositories/repomanager"
)

// -------- test fakes --------

type fakeFilesRepo struct {
	files.Repository

	created   []*models.File
	createErr error

	byID   map[string]*models.File
	getErr error

	listRows []*models.File
	listErr  error

	deletedIDs []string
	deleteErr  error
}

func (f *fakeFilesRepo) Create(ctx context.Context, file *models.File) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, file)
	return nil
}

func (f *fakeFilesRepo) GetByID(ctx context.Context, id string) (*models.File, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return rec, nil
}

func (f *fakeFilesRepo) ListByOwner(ctx context.Context, userID string) ([]*models.File, error) {
	return f.listRows, f.listErr
}

func (f *fakeFilesRepo) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	f *fakeFilesRepo
}

func (m *fakeRepoManager) Files(db dbx.DBTX) files.Repository { return m.f }

func newUserSvc(t *testing.T, broker Broker, repo *fakeFilesRepo) (*UserFileService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserFileService(db, &fakeRepoManager{f: repo}, broker, testConfig()), mock
}

func expectTx(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectCommit()
}

// -------- tests --------

func TestUserUpload_CreatesRecordAfterPut(t *testing.T) {
	broker := &fakeBroker{presignURL: "https://signed.example/get"}
	repo := &fakeFilesRepo{}
	svc, mock := newUserSvc(t, broker, repo)
	expectTx(mock)

	res, err := svc.Upload(context.Background(), "user-1", []UploadPart{
		{Name: "report.pdf", ContentType: "application/pdf", Data: []byte("ciphertext")},
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if len(repo.created) != 1 {
		t.Fatalf("expected one catalog record, got %d", len(repo.created))
	}
	rec := repo.created[0]
	if rec.UserID != "user-1" || rec.DisplayName != "report.pdf" || rec.ContentType != "application/pdf" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.StorageKey != broker.puts[0].key {
		t.Fatalf("record key %q, stored key %q", rec.StorageKey, broker.puts[0].key)
	}
	if res.FileID != rec.ID {
		t.Fatalf("FileID %q, want record id %q", res.FileID, rec.ID)
	}
	if want := "http://localhost:8080/download/" + rec.ID; res.ShareURL != want {
		t.Fatalf("share url %q, want %q", res.ShareURL, want)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("tx expectations: %v", err)
	}
}

func TestUserUpload_PutFailureLeavesNoRecord(t *testing.T) {
	broker := &fakeBroker{putErr: errors.New("storage down")}
	repo := &fakeFilesRepo{}
	svc, _ := newUserSvc(t, broker, repo)

	if _, err := svc.Upload(context.Background(), "user-1", []UploadPart{{Name: "a", Data: []byte("x")}}); err == nil {
		t.Fatalf("expected storage error")
	}
	if len(repo.created) != 0 {
		t.Fatalf("no record must be created after a failed PUT")
	}
}

func TestUserUpload_NoParts(t *testing.T) {
	broker := &fakeBroker{}
	repo := &fakeFilesRepo{}
	svc, _ := newUserSvc(t, broker, repo)

	if _, err := svc.Upload(context.Background(), "user-1", nil); !errors.Is(err, common.ErrorNoFile) {
		t.Fatalf("expected ErrorNoFile, got %v", err)
	}
}

func TestUserList_SignsEachRecord(t *testing.T) {
	broker := &fakeBroker{presignURL: "https://signed.example/get"}
	repo := &fakeFilesRepo{listRows: []*models.File{
		{ID: "r1", UserID: "user-1", DisplayName: "a.txt", StorageKey: "k1/a.txt", ContentType: "text/plain", Size: 1},
		{ID: "r2", UserID: "user-1", DisplayName: "b.txt", StorageKey: "k2/b.txt", ContentType: "text/plain", Size: 2},
	}}
	svc, _ := newUserSvc(t, broker, repo)

	views, err := svc.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	if len(broker.presignGets) != 2 {
		t.Fatalf("expected a signed URL per record, got %d", len(broker.presignGets))
	}
	for _, sign := range broker.presignGets {
		if sign.ttl != time.Hour {
			t.Fatalf("list urls must use the download ttl, got %v", sign.ttl)
		}
	}
	if views[0].URL == "" || views[1].URL == "" {
		t.Fatalf("missing URLs: %+v", views)
	}
}

func TestUserDownload_OwnershipHidesForeignRecords(t *testing.T) {
	broker := &fakeBroker{presignURL: "u"}
	repo := &fakeFilesRepo{byID: map[string]*models.File{
		"r1": {ID: "r1", UserID: "someone-else", StorageKey: "k/f", DisplayName: "f"},
	}}
	svc, _ := newUserSvc(t, broker, repo)

	if _, err := svc.Download(context.Background(), "user-1", "r1"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("foreign record must look missing, got %v", err)
	}
	if len(broker.presignGets) != 0 {
		t.Fatalf("no URL must be signed for a foreign record")
	}
}

func TestUserDownload_OwnedRecord(t *testing.T) {
	broker := &fakeBroker{presignURL: "https://signed.example/get"}
	repo := &fakeFilesRepo{byID: map[string]*models.File{
		"r1": {ID: "r1", UserID: "user-1", StorageKey: "k/report.pdf", DisplayName: "report.pdf", ContentType: "application/pdf", Size: 7},
	}}
	svc, _ := newUserSvc(t, broker, repo)

	res, err := svc.Download(context.Background(), "user-1", "r1")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if res.Size != 7 || res.URL != "https://signed.example/get" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestUserDelete_RemovesObjectAndRecord(t *testing.T) {
	broker := &fakeBroker{}
	repo := &fakeFilesRepo{byID: map[string]*models.File{
		"r1": {ID: "r1", UserID: "user-1", StorageKey: "k/f", DisplayName: "f"},
	}}
	svc, mock := newUserSvc(t, broker, repo)
	expectTx(mock)

	if err := svc.Delete(context.Background(), "user-1", "r1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(broker.deletedKeys) != 1 || broker.deletedKeys[0] != "k/f" {
		t.Fatalf("object not revoked: %v", broker.deletedKeys)
	}
	if len(repo.deletedIDs) != 1 || repo.deletedIDs[0] != "r1" {
		t.Fatalf("record not removed: %v", repo.deletedIDs)
	}
}

func TestUserDelete_ObjectAlreadyGone(t *testing.T) {
	broker := &fakeBroker{deleteErr: common.ErrorNotFound}
	repo := &fakeFilesRepo{byID: map[string]*models.File{
		"r1": {ID: "r1", UserID: "user-1", StorageKey: "k/f", DisplayName: "f"},
	}}
	svc, mock := newUserSvc(t, broker, repo)
	expectTx(mock)

	if err := svc.Delete(context.Background(), "user-1", "r1"); err != nil {
		t.Fatalf("an already-revoked object must not block record removal: %v", err)
	}
	if len(repo.deletedIDs) != 1 {
		t.Fatalf("record not removed")
	}
}

func TestUserDelete_MissingRecord(t *testing.T) {
	broker := &fakeBroker{}
	repo := &fakeFilesRepo{}
	svc, _ := newUserSvc(t, broker, repo)

	if err := svc.Delete(context.Background(), "user-1", "missing"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestIssueUploadTarget(t *testing.T) {
	broker := &fakeBroker{presignPutURL: "https://signed.example/put"}
	repo := &fakeFilesRepo{}
	svc, mock := newUserSvc(t, broker, repo)
	expectTx(mock)

	target, err := svc.IssueUploadTarget(context.Background(), "user-1", "big.iso", "application/octet-stream", 1<<30)
	if err != nil {
		t.Fatalf("IssueUploadTarget: %v", err)
	}
	if target.URL != "https://signed.example/put" {
		t.Fatalf("url %q", target.URL)
	}
	if broker.presignPutTTL != time.Hour {
		t.Fatalf("upload target ttl %v, want 1h", broker.presignPutTTL)
	}
	if len(repo.created) != 1 || repo.created[0].ID != target.FileID {
		t.Fatalf("pending record not cataloged: %+v", repo.created)
	}
	if repo.created[0].StorageKey != broker.presignPutKey {
		t.Fatalf("record key %q, presigned key %q", repo.created[0].StorageKey, broker.presignPutKey)
	}
}

func TestIssueUploadTarget_EmptyName(t *testing.T) {
	broker := &fakeBroker{}
	repo := &fakeFilesRepo{}
	svc, _ := newUserSvc(t, broker, repo)

	if _, err := svc.IssueUploadTarget(context.Background(), "user-1", "", "", 0); !errors.Is(err, common.ErrorNoFile) {
		t.Fatalf("expected ErrorNoFile, got %v", err)
	}
}
