package storage

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"ai-livestream-be/internal/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gocache "github.com/patrickmn/go-cache"
)

// S3Store uploads clip artifacts and issues presigned playback URLs.
// The underlying client is established lazily on first use so a missing
// bucket configuration degrades to skipped persistence instead of a
// startup failure.
type S3Store struct {
	Bucket string
	Region string

	mu        sync.Mutex
	client    *s3.Client
	presigner *s3.PresignClient

	urlCache *gocache.Cache
	log      logger.ILogger
}

func NewS3Store(bucket, region string, presignTTL time.Duration, log logger.ILogger) *S3Store {
	// Cached URLs are evicted shortly before they actually expire so a
	// cache hit is never a dead link.
	cacheTTL := presignTTL - time.Minute
	if cacheTTL <= 0 {
		cacheTTL = presignTTL / 2
	}
	return &S3Store{
		Bucket:   bucket,
		Region:   region,
		urlCache: gocache.New(cacheTTL, 10*time.Minute),
		log:      log,
	}
}

// Configured reports whether a target bucket is set. Callers check this once
// at session start, not per item.
func (s *S3Store) Configured() bool {
	return s.Bucket != ""
}

func (s *S3Store) getClient(ctx context.Context) (*s3.Client, *s3.PresignClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, s.presigner, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(s.Region))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	s.client = s3.NewFromConfig(cfg)
	s.presigner = s3.NewPresignClient(s.client)
	s.log.Info("S3", "Client initialized", map[string]interface{}{"bucket": s.Bucket, "region": s.Region})
	return s.client, s.presigner, nil
}

func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) error {
	client, _, err := s.getClient(ctx)
	if err != nil {
		return err
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		Metadata:    metadata,
	})
	if err != nil {
		return fmt.Errorf("S3 PutObject %s: %w", key, err)
	}
	return nil
}

// PresignGet returns a time-limited GET URL for key. URLs are cached for
// slightly less than their lifetime.
func (s *S3Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if url, found := s.urlCache.Get(key); found {
		return url.(string), nil
	}

	_, presigner, err := s.getClient(ctx)
	if err != nil {
		return "", err
	}

	result, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("S3 presign %s: %w", key, err)
	}

	s.urlCache.SetDefault(key, result.URL)
	return result.URL, nil
}

// ClipKey and ThumbnailKey define the storage layout, namespaced by session.
func ClipKey(sessionId string, clipIndex int) string {
	return fmt.Sprintf("%s/clips/clip_%04d.avi", sessionId, clipIndex)
}

func ThumbnailKey(sessionId string, clipIndex int) string {
	return fmt.Sprintf("%s/thumbnails/thumb_%04d.jpg", sessionId, clipIndex)
}
