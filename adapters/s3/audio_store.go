package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/tags"
	"go.uber.org/zap"

	"github.com/satriahrh/vaani/domain/entities"
	"github.com/satriahrh/vaani/domain/repositories"
)

// Config holds the object storage settings for synthesized audio
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Secure    bool
	KeyPrefix string

	// PresignExpiry > 0 hands out presigned object URLs. Otherwise handle
	// URLs point at URLPrefix and audio is streamed through the API.
	PresignExpiry time.Duration
	URLPrefix     string

	// OrphanExpiry > 0 also removes session-owned objects older than this,
	// which only a crashed process leaves behind
	OrphanExpiry time.Duration
}

// ownerTag marks who is responsible for removing an object
const (
	ownerTag      = "owner"
	ownerSession  = "session"
	ownerDetached = "detached"
)

// AudioStore keeps synthesized audio in an S3 compatible bucket
type AudioStore struct {
	client *minio.Client
	config Config
	logger *zap.Logger
}

var (
	_ repositories.AudioStore   = (*AudioStore)(nil)
	_ repositories.AudioExpirer = (*AudioStore)(nil)
)

// NewAudioStore connects to the bucket and checks that it exists
func NewAudioStore(ctx context.Context, config Config, logger *zap.Logger) (*AudioStore, error) {
	if config.Endpoint == "" || config.Bucket == "" {
		return nil, errors.New("s3 endpoint and bucket are required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "audio/"
	}
	if !strings.HasSuffix(config.KeyPrefix, "/") {
		config.KeyPrefix += "/"
	}
	config.URLPrefix = strings.TrimRight(config.URLPrefix, "/") + "/"

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.Secure,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init S3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", config.Bucket)
	}

	logger.Info("Connected to audio bucket",
		zap.String("endpoint", config.Endpoint),
		zap.String("bucket", config.Bucket))

	return &AudioStore{client: client, config: config, logger: logger}, nil
}

// Acquire implements AudioStore
func (s *AudioStore) Acquire(ctx context.Context, audio entities.AudioBlob) (*entities.AudioHandle, error) {
	if audio.Empty() {
		return nil, errors.New("audio cannot be empty")
	}

	id := uuid.NewString()
	now := time.Now()
	contentType := audio.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, s.config.Bucket, s.key(id), bytes.NewReader(audio.Data), int64(audio.Size()), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"uploaded-at": now.Format(time.RFC3339)},
		UserTags:     map[string]string{ownerTag: ownerSession},
	})
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	url, err := s.url(ctx, id)
	if err != nil {
		// the object is useless without a URL
		_ = s.client.RemoveObject(context.WithoutCancel(ctx), s.config.Bucket, s.key(id), minio.RemoveObjectOptions{})
		return nil, err
	}

	return &entities.AudioHandle{
		ID:        id,
		URL:       url,
		MIMEType:  audio.MIMEType,
		Size:      audio.Size(),
		CreatedAt: now,
	}, nil
}

// Release implements AudioStore. Removing a missing object is not an error in S3.
func (s *AudioStore) Release(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return repositories.ErrAudioNotFound
	}
	if err := s.client.RemoveObject(ctx, s.config.Bucket, s.key(id), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	return nil
}

// Detach implements AudioStore by retagging the object so the expiry sweep may remove it
func (s *AudioStore) Detach(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return repositories.ErrAudioNotFound
	}
	detached, err := tags.MapToObjectTags(map[string]string{ownerTag: ownerDetached})
	if err != nil {
		return err
	}
	if err := s.client.PutObjectTagging(ctx, s.config.Bucket, s.key(id), detached, minio.PutObjectTaggingOptions{}); err != nil {
		return s.notFound(err)
	}
	return nil
}

// Open implements AudioStore
func (s *AudioStore) Open(ctx context.Context, id string) (entities.AudioBlob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return entities.AudioBlob{}, repositories.ErrAudioNotFound
	}

	object, err := s.client.GetObject(ctx, s.config.Bucket, s.key(id), minio.GetObjectOptions{})
	if err != nil {
		return entities.AudioBlob{}, s.notFound(err)
	}
	defer object.Close()

	info, err := object.Stat()
	if err != nil {
		return entities.AudioBlob{}, s.notFound(err)
	}

	data, err := io.ReadAll(object)
	if err != nil {
		return entities.AudioBlob{}, fmt.Errorf("read object: %w", err)
	}
	return entities.AudioBlob{Data: data, MIMEType: info.ContentType}, nil
}

// ExpireOlderThan implements AudioExpirer. Objects a session still owns are kept
// unless they are older than OrphanExpiry.
func (s *AudioStore) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var orphanCutoff time.Time
	if s.config.OrphanExpiry > 0 {
		orphanCutoff = time.Now().Add(-s.config.OrphanExpiry)
	}

	objects := s.client.ListObjects(ctx, s.config.Bucket, minio.ListObjectsOptions{
		Prefix:    s.config.KeyPrefix,
		Recursive: true,
	})

	expired := 0
	var errs []error
	for object := range objects {
		if object.Err != nil {
			return expired, fmt.Errorf("list objects: %w", object.Err)
		}
		if !object.LastModified.Before(cutoff) {
			continue
		}
		if !object.LastModified.Before(orphanCutoff) {
			detached, err := s.detached(ctx, object.Key)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if !detached {
				continue
			}
		}
		if err := s.client.RemoveObject(ctx, s.config.Bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", object.Key, err))
			continue
		}
		expired++
	}
	return expired, errors.Join(errs...)
}

func (s *AudioStore) detached(ctx context.Context, key string) (bool, error) {
	objectTags, err := s.client.GetObjectTagging(ctx, s.config.Bucket, key, minio.GetObjectTaggingOptions{})
	if err != nil {
		return false, fmt.Errorf("get tags of %s: %w", key, err)
	}
	return objectTags.ToMap()[ownerTag] == ownerDetached, nil
}

func (s *AudioStore) key(id string) string {
	return s.config.KeyPrefix + id
}

func (s *AudioStore) url(ctx context.Context, id string) (string, error) {
	if s.config.PresignExpiry <= 0 {
		return s.config.URLPrefix + id, nil
	}
	presigned, err := s.client.PresignedGetObject(ctx, s.config.Bucket, s.key(id), s.config.PresignExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign failed: %w", err)
	}
	return presigned.String(), nil
}

func (s *AudioStore) notFound(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey" {
		return repositories.ErrAudioNotFound
	}
	return fmt.Errorf("get object: %w", err)
}
