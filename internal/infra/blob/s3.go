package blob

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/ohfdesk/ohfdesk/internal/config"
	"github.com/ohfdesk/ohfdesk/internal/pkg/utils/mime"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
)

// S3Deps bundles the clients needed to store session recordings in an
// S3-compatible bucket (Supabase Storage exposes one).
type S3Deps struct {
	Client    *s3.Client
	Uploader  *manager.Uploader
	Presigner *s3.PresignClient
	Bucket    string
	MaxBytes  int64
}

type UploadedMeta struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	ETag   string `json:"etag"`
	SHA256 string `json:"sha256"`
	MIME   string `json:"mime"`
	SizeB  int64  `json:"size_b"`
}

func NewS3(ctx context.Context, cfg *config.Config) (*S3Deps, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3.Region),
	}
	if cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3.AccessKey, cfg.S3.SecretKey, ""),
		))
	}

	acfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	otelaws.AppendMiddlewares(&acfg.APIOptions)

	client := s3.NewFromConfig(acfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
		}
		o.UsePathStyle = cfg.S3.UsePathStyle
	})

	maxBytes := int64(cfg.S3.MaxUploadMB) * 1024 * 1024
	return &S3Deps{
		Client:    client,
		Uploader:  manager.NewUploader(client),
		Presigner: s3.NewPresignClient(client),
		Bucket:    cfg.S3.Bucket,
		MaxBytes:  maxBytes,
	}, nil
}

// ObjectKey builds "<prefix>/<uuid><ext>" with ext taken from filename.
func ObjectKey(prefix, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return strings.TrimSuffix(prefix, "/") + "/" + uuid.NewString() + ext
}

// UploadBytes stores data under key. The MIME type is detected from content when mimeType is empty.
func (s *S3Deps) UploadBytes(ctx context.Context, key string, data []byte, mimeType string) (*UploadedMeta, error) {
	if s.MaxBytes > 0 && int64(len(data)) > s.MaxBytes {
		return nil, fmt.Errorf("object too large: %d bytes (max %d)", len(data), s.MaxBytes)
	}
	if mimeType == "" {
		mimeType = mime.DetectMimeType(data, key)
	}
	sum := sha256.Sum256(data)

	out, err := s.Uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	return &UploadedMeta{
		Bucket: s.Bucket,
		Key:    key,
		ETag:   strings.Trim(aws.ToString(out.ETag), `"`),
		SHA256: hex.EncodeToString(sum[:]),
		MIME:   mimeType,
		SizeB:  int64(len(data)),
	}, nil
}

func (s *S3Deps) PresignGet(ctx context.Context, key string, expire time.Duration) (string, error) {
	req, err := s.Presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expire))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3Deps) Delete(ctx context.Context, key string) error {
	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	return err
}
