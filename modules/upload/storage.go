package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// ObjectStore is the blob backend for attachment uploads.
type ObjectStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (*ObjectInfo, error)
	Get(ctx context.Context, name string) ([]byte, *ObjectInfo, error)
	Delete(ctx context.Context, name string) error
}

// ObjectInfo is metadata about a stored object.
type ObjectInfo struct {
	Name        string
	Size        uint64
	ContentType string
	ModTime     time.Time
}

func headerContentType(headers nats.Header) string {
	if headers != nil {
		if ct := headers.Get("Content-Type"); ct != "" {
			return ct
		}
	}
	return "application/octet-stream"
}

// JetStreamStore keeps attachments in a NATS JetStream object store
// bucket so every server process serves the same blobs.
type JetStreamStore struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	store  jetstream.ObjectStore
	bucket string
}

// NewJetStreamStore connects to NATS and prepares a JetStream client for
// the given bucket. Call Init before first use.
func NewJetStreamStore(natsURL, bucket string) (*JetStreamStore, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &JetStreamStore{conn: conn, js: js, bucket: bucket}, nil
}

// Init opens the bucket, creating it on first run.
func (s *JetStreamStore) Init(ctx context.Context) error {
	store, err := s.js.ObjectStore(ctx, s.bucket)
	if err == nil {
		s.store = store
		return nil
	}

	store, err = s.js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      s.bucket,
		Description: "Chat attachment storage",
	})
	if err != nil {
		return fmt.Errorf("failed to create object store bucket: %w", err)
	}
	s.store = store
	return nil
}

// Put stores an attachment blob.
func (s *JetStreamStore) Put(ctx context.Context, name string, data []byte, contentType string) (*ObjectInfo, error) {
	meta := jetstream.ObjectMeta{
		Name: name,
		Headers: nats.Header{
			"Content-Type": []string{contentType},
		},
	}

	info, err := s.store.Put(ctx, meta, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to store object: %w", err)
	}

	return &ObjectInfo{
		Name:        info.Name,
		Size:        info.Size,
		ContentType: contentType,
		ModTime:     info.ModTime,
	}, nil
}

// Get retrieves an attachment blob.
func (s *JetStreamStore) Get(ctx context.Context, name string) ([]byte, *ObjectInfo, error) {
	result, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer result.Close()

	data, err := io.ReadAll(result)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read object data: %w", err)
	}

	info, err := result.Info()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get object info: %w", err)
	}

	return data, &ObjectInfo{
		Name:        info.Name,
		Size:        info.Size,
		ContentType: headerContentType(info.Headers),
		ModTime:     info.ModTime,
	}, nil
}

// Delete removes an attachment blob.
func (s *JetStreamStore) Delete(ctx context.Context, name string) error {
	if err := s.store.Delete(ctx, name); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// IsConnected reports whether the NATS connection is live.
func (s *JetStreamStore) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

// Close closes the NATS connection.
func (s *JetStreamStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}

// LocalStore keeps attachments on the local filesystem. Content types
// are stored in a sidecar file next to each blob.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the storage directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// Put writes the blob and its content-type sidecar.
func (s *LocalStore) Put(_ context.Context, name string, data []byte, contentType string) (*ObjectInfo, error) {
	path := s.path(name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.WriteFile(path+".ctype", []byte(contentType), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write content type: %w", err)
	}
	return &ObjectInfo{
		Name:        filepath.Base(name),
		Size:        uint64(len(data)),
		ContentType: contentType,
		ModTime:     time.Now(),
	}, nil
}

// Get reads the blob and its content type.
func (s *LocalStore) Get(_ context.Context, name string) ([]byte, *ObjectInfo, error) {
	path := s.path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}

	contentType := "application/octet-stream"
	if ct, err := os.ReadFile(path + ".ctype"); err == nil {
		contentType = string(ct)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return data, &ObjectInfo{
		Name:        filepath.Base(name),
		Size:        uint64(stat.Size()),
		ContentType: contentType,
		ModTime:     stat.ModTime(),
	}, nil
}

// Delete removes the blob and its sidecar.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	path := s.path(name)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	os.Remove(path + ".ctype")
	return nil
}
