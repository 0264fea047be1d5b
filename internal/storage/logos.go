package storage

import (
	"bytes"
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const logoPrefix = "logos/"

// LogoStore maps channel logos to provider keys and public URLs.
type LogoStore struct {
	backend   Provider
	publicURL string
}

// NewLogoStore serves keys under publicURL, e.g. "/uploads" for the local provider
// or a bucket/CDN URL for S3.
func NewLogoStore(backend Provider, publicURL string) *LogoStore {
	return &LogoStore{backend: backend, publicURL: strings.TrimRight(publicURL, "/")}
}

func (s *LogoStore) SaveLogo(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	key := logoPrefix + uuid.NewString() + "-" + SanitizeFilename(filename)
	if err := s.backend.Put(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return "", err
	}
	return s.publicURL + "/" + key, nil
}

// RemoveLogo deletes the object behind a URL issued by SaveLogo. Other URLs are ignored.
func (s *LogoStore) RemoveLogo(ctx context.Context, url string) error {
	key, ok := s.keyFromURL(url)
	if !ok {
		return nil
	}
	return s.backend.Delete(ctx, key)
}

func (s *LogoStore) keyFromURL(url string) (string, bool) {
	prefix := s.publicURL + "/" + logoPrefix
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(url, prefix)
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		return "", false
	}
	return logoPrefix + name, true
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\-_\s]+`)

// SanitizeFilename keeps a readable base name and a short extension.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	ext := strings.ToLower(path.Ext(name))
	base := strings.TrimSuffix(name, path.Ext(name))

	base = unsafeChars.ReplaceAllString(base, "")
	base = strings.ReplaceAll(strings.TrimSpace(base), " ", "_")
	if base == "" {
		base = "logo"
	}
	if len(base) > 64 {
		base = base[:64]
	}

	ext = unsafeChars.ReplaceAllString(strings.TrimPrefix(ext, "."), "")
	if ext == "" || len(ext) > 5 {
		return base
	}
	return base + "." + ext
}
