// Package storage declares the contracts for the durable collaborators the
// chat facades depend on: the object store holding uploaded files and the
// user directory resolving identities. Both are implemented outside this
// repository; only the boundary lives here, alongside the env-derived
// configuration that follows the same pattern as the cluster endpoint.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ktb-chatapp/backend/internal/utils"
)

// BlobStore is the object-storage contract consumed by the file-upload
// facade.
type BlobStore interface {
	// Put stores the object under key with the given content type.
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	// PresignedGetURL returns a time-limited download URL for key. When
	// inline is false the URL forces an attachment disposition.
	PresignedGetURL(ctx context.Context, key string, inline bool, ttl time.Duration) (string, error)
	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error
}

// User is the directory record the facades resolve identities against.
type User struct {
	ID       string
	Email    string
	Nickname string
}

// UserDirectory is the read-mostly identity lookup contract, e.g. for
// confirming that a session's user still exists.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (User, bool, error)
	FindByEmail(ctx context.Context, email string) (User, bool, error)
	FindByIDs(ctx context.Context, ids []string) ([]User, error)
}

// BlobConfig holds the object-store settings read from the environment.
type BlobConfig struct {
	Bucket      string
	Region      string
	BasePath    string
	PresignTTL  time.Duration
	EndpointURL string // optional override for S3-compatible stores
}

// LoadBlobConfig reads the object-store settings with the defaults the chat
// backend deploys with.
func LoadBlobConfig() BlobConfig {
	cfg := BlobConfig{
		Bucket:      strings.TrimSpace(os.Getenv("S3_BUCKET")),
		Region:      strings.TrimSpace(os.Getenv("S3_REGION")),
		BasePath:    strings.TrimSpace(os.Getenv("S3_BASE_PATH")),
		PresignTTL:  time.Duration(utils.GetEnvAsInt("S3_PRESIGN_TTL_MIN", 15)) * time.Minute,
		EndpointURL: strings.TrimSpace(os.Getenv("S3_ENDPOINT_OVERRIDE")),
	}
	if cfg.Region == "" {
		cfg.Region = "ap-northeast-2"
	}
	if cfg.BasePath == "" {
		cfg.BasePath = "chat"
	}
	return cfg
}

// Validate checks that a bucket is configured.
func (c BlobConfig) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("storage: S3_BUCKET is required")
	}
	if c.PresignTTL <= 0 {
		return fmt.Errorf("storage: S3_PRESIGN_TTL_MIN must be positive")
	}
	return nil
}

// ObjectKey builds the canonical object key for a stored file:
// basePath/subDir/filename with each segment sanitized. Path traversal
// segments and leading or trailing separators are stripped so a crafted
// filename cannot escape the configured base path.
func (c BlobConfig) ObjectKey(subDir, filename string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.BasePath, subDir, filename} {
		if p = sanitizeSegment(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "/")
}

func sanitizeSegment(s string) string {
	s = strings.Trim(strings.TrimSpace(s), "/")
	cleaned := make([]string, 0, 2)
	for _, part := range strings.Split(s, "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		cleaned = append(cleaned, part)
	}
	return strings.Join(cleaned, "/")
}
