// Package sharelink composes the externally distributed URL that combines
// storage location, optional key material and an expiry window.
//
// A share link is self-sufficient: possessing it is necessary and sufficient
// to retrieve and decrypt the file in the anonymous flow. The key token it
// may carry is the only copy of the decryption key outside the sender's
// machine, so no component logs or stores the composed URL.
package sharelink

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/common"
)

// Link is a composed share link.
type Link struct {
	URL       string
	ExpiresAt time.Time
}

// Compose builds the download URL for fileID under baseURL. keyToken is
// appended as the "key" query parameter when non-empty (anonymous
// end-to-end-encrypted flow); the authenticated flow passes an empty token
// and relies on the ownership check instead.
func Compose(baseURL string, fileID string, keyToken string, expiresAt time.Time) (*Link, error) {
	if fileID == "" {
		return nil, fmt.Errorf("empty file id")
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	// The file id may span several path segments (storage keys contain a
	// slash), so it is appended to the decoded path; String() re-escapes
	// each segment.
	u.Path += "/download/" + fileID
	u.RawPath = ""

	if keyToken != "" {
		q := u.Query()
		q.Set(common.KeyQueryParam, keyToken)
		u.RawQuery = q.Encode()
	}

	return &Link{URL: u.String(), ExpiresAt: expiresAt}, nil
}

// WithKey appends the key token to an already composed download URL, such
// as the one the server builds from its public base URL. An empty token
// returns the link unchanged.
func WithKey(link string, keyToken string) (string, error) {
	if keyToken == "" {
		return link, nil
	}

	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid share link: %w", err)
	}

	q := u.Query()
	q.Set(common.KeyQueryParam, keyToken)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// ParseDownload extracts the file id and optional key token from a share
// link previously produced by Compose. Used by the recipient-side client.
func ParseDownload(link string) (fileID string, keyToken string, err error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", "", fmt.Errorf("invalid share link: %w", err)
	}

	const prefix = "/download/"
	i := strings.Index(u.Path, prefix)
	if i < 0 {
		return "", "", fmt.Errorf("share link has no download path: %q", u.Path)
	}

	fileID = u.Path[i+len(prefix):]
	if fileID == "" {
		return "", "", fmt.Errorf("share link has no file id")
	}

	return fileID, u.Query().Get(common.KeyQueryParam), nil
}
