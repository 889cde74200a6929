package service

import (
	"context"
	"time"

	"github.com/ohfdesk/ohfdesk/internal/infra/blob"
)

// ObjectStore is the slice of blob.S3Deps the services need.
type ObjectStore interface {
	UploadBytes(ctx context.Context, key string, data []byte, mimeType string) (*blob.UploadedMeta, error)
	PresignGet(ctx context.Context, key string, expire time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}
