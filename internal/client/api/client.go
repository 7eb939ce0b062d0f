// Package api is the thin HTTP client for the FileDrop server. It speaks
// the server's multipart/JSON dialect and maps its error taxonomy back onto
// the shared sentinels; everything cryptographic happens in the caller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/common"
)

// Part is one payload of an upload request. Data is opaque to the server;
// in the end-to-end-encrypted flow it is already ciphertext.
type Part struct {
	Name        string
	ContentType string
	Data        []byte
}

// UploadReply mirrors the server's upload response. ShareURL is the
// canonical download endpoint under the server's public base URL.
type UploadReply struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	ShareURL  string    `json:"shareUrl"`
	Size      int64     `json:"size"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PresignReply mirrors the server's presign response: the catalog record id
// and a one-shot signed PUT URL.
type PresignReply struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// DownloadReply mirrors the server's download response.
type DownloadReply struct {
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

type errorReply struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Upload posts the parts as a multipart form, each under the repeated
// "file" field, and returns the server's addressing result.
func (c *Client) Upload(ctx context.Context, parts []Part) (*UploadReply, error) {
	if len(parts) == 0 {
		return nil, common.ErrorNoFile
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		fw, err := mw.CreateFormFile("file", p.Name)
		if err != nil {
			return nil, fmt.Errorf("building multipart form: %w", err)
		}
		if _, err := fw.Write(p.Data); err != nil {
			return nil, fmt.Errorf("building multipart form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("building multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var reply UploadReply
	if err := c.do(req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// Presign asks the server to catalog a pending upload under the caller's
// identity and issue a signed PUT URL for it. token is the identity JWT.
func (c *Client) Presign(ctx context.Context, token string, name string, contentType string, size int64) (*PresignReply, error) {
	body, err := json.Marshal(map[string]any{
		"name":        name,
		"contentType": contentType,
		"size":        size,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/user/files/presign", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	var reply PresignReply
	if err := c.do(req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// Download asks the server to re-issue a signed GET URL for fileID.
func (c *Client) Download(ctx context.Context, fileID string) (*DownloadReply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/download/", fileID), nil)
	if err != nil {
		return nil, err
	}

	var reply DownloadReply
	if err := c.do(req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// Delete revokes the object behind fileID.
func (c *Client) Delete(ctx context.Context, fileID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint("/", fileID), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// endpoint joins a path prefix and a file id that may span several path
// segments, escaping each segment on render.
func (c *Client) endpoint(prefix string, fileID string) string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + prefix + fileID
	}
	u.Path += prefix + fileID
	u.RawPath = ""
	return u.String()
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var er errorReply
		if json.Unmarshal(body, &er) == nil && er.Error != "" {
			return fmt.Errorf("%s: %w", er.Error, statusError(resp.StatusCode))
		}
		return fmt.Errorf("%s: %w", resp.Status, statusError(resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func statusError(code int) error {
	switch code {
	case http.StatusNotFound:
		return common.ErrorNotFound
	case http.StatusBadRequest:
		return common.ErrorNoFile
	case http.StatusUnauthorized:
		return common.ErrorUnauthorized
	default:
		return common.ErrorInternal
	}
}
