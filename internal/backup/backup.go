// Package backup stores session snapshots in S3.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"taskquest/internal/engine"
)

const keyTimeLayout = "20060102T150405Z"

var ErrNotFound = errors.New("backup not found")

// ObjectAPI is the part of *s3.Client the store uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// NewS3Client builds a client from the shared AWS config. An empty profile
// uses the default credential chain.
func NewS3Client(ctx context.Context, region, profile string) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

type Store struct {
	api    ObjectAPI
	bucket string
	prefix string
	logger *log.Logger
}

func NewStore(api ObjectAPI, bucket, prefix string, logger *log.Logger) (*Store, error) {
	if bucket == "" {
		return nil, errors.New("backup: bucket is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Store{api: api, bucket: bucket, prefix: strings.Trim(prefix, "/"), logger: logger}, nil
}

func (s *Store) userPrefix(userID string) string {
	return path.Join(s.prefix, userID) + "/"
}

// Key returns the object key for snap: <prefix>/<user>/snapshot-<UTC time>.json.
func (s *Store) Key(snap *engine.Snapshot) string {
	return s.userPrefix(snap.UserID) + "snapshot-" + snap.TakenAt.UTC().Format(keyTimeLayout) + ".json"
}

// Push uploads snap and returns its key.
func (s *Store) Push(ctx context.Context, snap *engine.Snapshot) (string, error) {
	if snap.UserID == "" {
		return "", errors.New("backup: snapshot has no user id")
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	key := s.Key(snap)
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	s.logger.Printf("backup: uploaded s3://%s/%s", s.bucket, key)
	return key, nil
}

// Pull downloads and decodes the snapshot at key.
func (s *Store) Pull(ctx context.Context, key string) (*engine.Snapshot, error) {
	resp, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundErr(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	defer resp.Body.Close()

	var snap engine.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &snap, nil
}

// List returns the user's snapshot keys, oldest first.
func (s *Store) List(ctx context.Context, userID string) ([]string, error) {
	var keys []string
	in := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.userPrefix(userID)),
	}
	for {
		out, err := s.api.ListObjectsV2(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("list backups: %w", err)
		}
		for _, obj := range out.Contents {
			k := aws.ToString(obj.Key)
			if strings.HasSuffix(k, ".json") {
				keys = append(keys, k)
			}
		}
		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			break
		}
		in.ContinuationToken = out.NextContinuationToken
	}
	sort.Strings(keys)
	return keys, nil
}

// Latest returns the key of the user's newest snapshot.
func (s *Store) Latest(ctx context.Context, userID string) (string, error) {
	keys, err := s.List(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "", fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return keys[len(keys)-1], nil
}

func isNotFoundErr(err error) bool {
	var s3Err *types.NoSuchKey
	return errors.As(err, &s3Err)
}
