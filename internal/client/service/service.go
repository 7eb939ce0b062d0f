// Package service is the sender/recipient orchestration: it owns the key
// lifecycle of an exchange. Keys are generated (or derived) here, applied
// here, and embedded into the share link here; they never travel to the
// server in any other form than the link's query parameter.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/bundler"
	"github.com/dmitrijs2005/filedrop/internal/client/api"
	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/cryptox"
	"github.com/dmitrijs2005/filedrop/internal/keycodec"
	"github.com/dmitrijs2005/filedrop/internal/netx"
	"github.com/dmitrijs2005/filedrop/internal/objectkey"
	"github.com/dmitrijs2005/filedrop/internal/sharelink"
)

// zipMagic is the local-file-header signature that opens every zip archive.
var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// fetchBlob and putBlob are test seams over the presigned-URL transfers.
var (
	fetchBlob = netx.DownloadFromPresignedURL
	putBlob   = netx.UploadToPresignedURL
)

// Transfers is the slice of the server API the orchestration needs.
// Satisfied by *api.Client; faked in tests.
type Transfers interface {
	Upload(ctx context.Context, parts []api.Part) (*api.UploadReply, error)
	Download(ctx context.Context, fileID string) (*api.DownloadReply, error)
	Delete(ctx context.Context, fileID string) error
	Presign(ctx context.Context, token string, name string, contentType string, size int64) (*api.PresignReply, error)
}

// SendResult reports a completed send: the object's id on the server and
// the self-sufficient share link to hand to the recipient.
type SendResult struct {
	FileID    string
	Link      string
	ExpiresAt time.Time
}

type Service struct {
	api       Transfers
	serverURL string
}

func New(api Transfers, serverURL string) *Service {
	return &Service{api: api, serverURL: serverURL}
}

// Send encrypts the named files under one fresh key, uploads them as a
// single operation and composes the share link carrying the key token.
func (s *Service) Send(ctx context.Context, paths []string) (*SendResult, error) {
	key, err := cryptox.GenerateKey()
	if err != nil {
		return nil, err
	}

	token, err := keycodec.Encode(key)
	if err != nil {
		return nil, err
	}

	return s.send(ctx, paths, key, token)
}

// SendWithPassphrase derives the key from a passphrase and a fresh salt.
// The link then carries only the public salt; the recipient must know the
// passphrase through some other channel.
func (s *Service) SendWithPassphrase(ctx context.Context, paths []string, passphrase []byte) (*SendResult, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("empty passphrase")
	}

	salt, err := cryptox.GenerateSalt()
	if err != nil {
		return nil, err
	}

	key := cryptox.DeriveKey(passphrase, salt)

	return s.send(ctx, paths, key, keycodec.EncodeSalt(salt))
}

func (s *Service) send(ctx context.Context, paths []string, key []byte, token string) (*SendResult, error) {
	if len(paths) == 0 {
		return nil, common.ErrorNoFile
	}

	parts, err := encryptFiles(key, paths)
	if err != nil {
		return nil, err
	}

	reply, err := s.api.Upload(ctx, parts)
	if err != nil {
		return nil, fmt.Errorf("uploading: %w", err)
	}

	// The server announces its public download endpoint; the key token is
	// appended here and only here. Older servers without the field fall
	// back to composing against the configured URL.
	var link string
	if reply.ShareURL != "" {
		link, err = sharelink.WithKey(reply.ShareURL, token)
		if err != nil {
			return nil, err
		}
	} else {
		composed, err := sharelink.Compose(s.serverURL, reply.ID, token, reply.ExpiresAt)
		if err != nil {
			return nil, err
		}
		link = composed.URL
	}

	return &SendResult{FileID: reply.ID, Link: link, ExpiresAt: reply.ExpiresAt}, nil
}

// encryptFiles reads and seals each file under the same key. Files are
// independent, so the sealing runs concurrently; each call draws its own
// nonce. The first error wins, and nothing is uploaded on any error.
func encryptFiles(key []byte, paths []string) ([]api.Part, error) {
	parts := make([]api.Part, len(paths))
	errs := make([]error, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()

			plaintext, err := os.ReadFile(path)
			if err != nil {
				errs[i] = fmt.Errorf("reading %q: %w", path, err)
				return
			}

			blob, err := cryptox.Encrypt(key, plaintext)
			if err != nil {
				errs[i] = fmt.Errorf("encrypting %q: %w", path, err)
				return
			}

			parts[i] = api.Part{
				Name:        filepath.Base(path),
				ContentType: "application/octet-stream",
				Data:        blob,
			}
		}(i, path)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return parts, nil
}

// Fetch resolves a share link, downloads the payload and writes the
// recovered files into outDir. promptPassphrase is consulted only when the
// link carries a salt token instead of a key token.
//
// A link without a key parameter yields the stored bytes verbatim; a link
// with one fails closed on any tampering, wrapping
// common.ErrorAuthentication.
func (s *Service) Fetch(ctx context.Context, link string, outDir string, promptPassphrase func() ([]byte, error)) ([]string, error) {
	fileID, token, err := sharelink.ParseDownload(link)
	if err != nil {
		return nil, err
	}

	reply, err := s.api.Download(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("resolving download: %w", err)
	}

	blob, err := fetchBlob(ctx, reply.URL)
	if err != nil {
		return nil, fmt.Errorf("downloading: %w", err)
	}

	var key []byte
	if token != "" {
		key, err = resolveKey(token, promptPassphrase)
		if err != nil {
			return nil, err
		}
	}

	entries, err := recoverEntries(key, blob, objectkey.Parse(fileID).DisplayName)
	if err != nil {
		return nil, err
	}

	return writeEntries(outDir, entries)
}

// DirectUpload pushes one file into the caller's catalog without routing
// the payload through the server: the server issues a signed PUT URL and
// the bytes go straight to storage. The payload is sent as-is; this is the
// owner flow, where content may be plain.
func (s *Service) DirectUpload(ctx context.Context, token string, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %q: %w", path, err)
	}

	contentType := "application/octet-stream"

	reply, err := s.api.Presign(ctx, token, filepath.Base(path), contentType, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("requesting upload target: %w", err)
	}

	if err := putBlob(ctx, reply.URL, data, contentType); err != nil {
		return "", fmt.Errorf("uploading %q: %w", path, err)
	}

	return reply.ID, nil
}

// Revoke deletes the object a share link points at.
func (s *Service) Revoke(ctx context.Context, link string) error {
	fileID, _, err := sharelink.ParseDownload(link)
	if err != nil {
		return err
	}
	return s.api.Delete(ctx, fileID)
}

// resolveKey turns the link's token back into key material. A key token
// decodes directly; a salt token needs the passphrase.
func resolveKey(token string, promptPassphrase func() ([]byte, error)) ([]byte, error) {
	key, err := keycodec.Decode(token)
	if err == nil {
		return key, nil
	}

	salt, saltErr := keycodec.DecodeSalt(token)
	if saltErr != nil {
		// Neither shape fits; report the key decode failure.
		return nil, err
	}

	if promptPassphrase == nil {
		return nil, fmt.Errorf("link requires a passphrase")
	}
	passphrase, err := promptPassphrase()
	if err != nil {
		return nil, err
	}

	return cryptox.DeriveKey(passphrase, salt), nil
}

// recoverEntries turns the downloaded blob into named plaintext files. A
// zip container means encrypt-then-bundle: entry names are plain, entry
// contents are sealed individually. Anything else is a single sealed file.
func recoverEntries(key []byte, blob []byte, displayName string) ([]namedFile, error) {
	open := func(data []byte) ([]byte, error) {
		if key == nil {
			return data, nil
		}
		return cryptox.Decrypt(key, data)
	}

	if bytes.HasPrefix(blob, zipMagic) {
		entries, err := bundler.Unbundle(blob)
		if err != nil {
			return nil, err
		}

		out := make([]namedFile, 0, len(entries))
		for _, e := range entries {
			plaintext, err := open(e.Data)
			if err != nil {
				return nil, fmt.Errorf("entry %q: %w", e.Name, err)
			}
			out = append(out, namedFile{name: e.Name, data: plaintext})
		}
		return out, nil
	}

	plaintext, err := open(blob)
	if err != nil {
		return nil, err
	}
	if displayName == "" {
		displayName = "file"
	}
	return []namedFile{{name: displayName, data: plaintext}}, nil
}

type namedFile struct {
	name string
	data []byte
}

func writeEntries(outDir string, entries []namedFile) ([]string, error) {
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	written := make([]string, 0, len(entries))
	for _, e := range entries {
		path := filepath.Join(outDir, objectkey.SanitizeName(e.name))
		if err := os.WriteFile(path, e.data, 0o600); err != nil {
			return nil, fmt.Errorf("writing %q: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
