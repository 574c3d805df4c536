// Package upload stores attachment blobs and hands back URLs that
// messages can reference.
package upload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	domain "github.com/Keshujangid/Chat-app/domain/chat"
)

// MaxFileSize is the largest accepted upload in bytes.
const MaxFileSize = 25 << 20 // 25 MiB

var (
	ErrEmptyFile    = errors.New("file is empty")
	ErrFileTooLarge = fmt.Errorf("file exceeds %d bytes", MaxFileSize)
)

// Result describes a stored attachment, shaped to slot directly into a
// message's attachment list.
type Result struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
	Type     string `json:"type"`
}

// Service validates uploads and writes them to the object store.
type Service struct {
	store     ObjectStore
	publicURL string
}

// NewService creates an upload service. publicURL is the path prefix
// under which stored objects are served back.
func NewService(store ObjectStore, publicURL string) *Service {
	return &Service{store: store, publicURL: strings.TrimSuffix(publicURL, "/")}
}

// Upload stores one file and returns its public description. The stored
// name is randomized; the original filename survives only in the result.
func (s *Service) Upload(ctx context.Context, filename, contentType string, data []byte) (*Result, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if len(data) > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	name := uuid.New().String() + sanitizeExt(filename)
	if _, err := s.store.Put(ctx, name, data, contentType); err != nil {
		return nil, err
	}

	return &Result{
		URL:      s.publicURL + "/" + name,
		Name:     filename,
		MimeType: contentType,
		FileSize: int64(len(data)),
		Type:     AttachmentTypeFor(contentType),
	}, nil
}

// Fetch reads a stored object back for serving.
func (s *Service) Fetch(ctx context.Context, name string) ([]byte, *ObjectInfo, error) {
	return s.store.Get(ctx, name)
}

// AttachmentTypeFor maps a MIME type onto the attachment type enum.
func AttachmentTypeFor(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return domain.AttachmentImage
	case strings.HasPrefix(contentType, "video/"):
		return domain.AttachmentVideo
	case strings.HasPrefix(contentType, "audio/"):
		return domain.AttachmentAudio
	default:
		return domain.AttachmentFile
	}
}

// sanitizeExt keeps only a short, plain file extension.
func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 {
		return ""
	}
	for _, r := range ext {
		if r != '.' && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
