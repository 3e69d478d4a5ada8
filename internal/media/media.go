// Package media stores uploaded photos and videos.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown keys.
var ErrNotFound = errors.New("media not found")

// Store saves objects and returns the URL they are served from.
type Store interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

// Kind reports whether contentType is a photo or a video. Anything else is
// rejected by SaveUpload.
func Kind(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "photo"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	default:
		return ""
	}
}

// SaveUpload stores a multipart file under prefix with a random name and
// returns its URL and kind.
func SaveUpload(ctx context.Context, store Store, prefix string, fh *multipart.FileHeader) (string, string, error) {
	ct := fh.Header.Get(fiber.HeaderContentType)
	if ct == "" || ct == "application/octet-stream" {
		ct = mime.TypeByExtension(strings.ToLower(path.Ext(fh.Filename)))
	}
	kind := Kind(ct)
	if kind == "" {
		return "", "", fmt.Errorf("unsupported file type %q", fh.Filename)
	}
	f, err := fh.Open()
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	key := path.Join(prefix, uuid.NewString()+strings.ToLower(path.Ext(fh.Filename)))
	url, err := store.Put(ctx, key, ct, f, fh.Size)
	if err != nil {
		return "", "", fmt.Errorf("store %s: %w", fh.Filename, err)
	}
	return url, kind, nil
}

type object struct {
	contentType string
	data        []byte
}

// MemoryStore keeps objects in process memory and serves them under
// PathPrefix.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]object
}

// PathPrefix is where MemoryStore objects are served.
const PathPrefix = "/media/"

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]object)}
}

func (m *MemoryStore) Put(_ context.Context, key, contentType string, body io.Reader, _ int64) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.objects[key] = object{contentType: contentType, data: buf.Bytes()}
	m.mu.Unlock()
	return PathPrefix + key, nil
}

// Get returns a stored object.
func (m *MemoryStore) Get(key string) ([]byte, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, "", ErrNotFound
	}
	return obj.data, obj.contentType, nil
}

// Handler serves stored objects; mount it at PathPrefix+"*".
func (m *MemoryStore) Handler(c *fiber.Ctx) error {
	data, ct, err := m.Get(c.Params("*"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	c.Set(fiber.HeaderContentType, ct)
	return c.Send(data)
}
