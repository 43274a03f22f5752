// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package objectstore keeps uploaded media files (images, videos, 3D models)
in S3-compatible object storage and hands back their public URL.

Content blocks only store that URL; the bytes never go through the database.
*/
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Object describes a file to store.
type Object struct {
	Key         string
	ContentType string
	Body        io.Reader
}

// # S3

// Config options for the S3 backend.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional custom endpoint for S3-compatible services
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string // Optional CDN/public prefix used to build object URLs
	UsePathStyle    bool
}

// S3Store uploads objects with the multipart-aware upload manager.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	baseURL  string
}

// NewS3 creates a new S3 store from static or ambient credentials.
func NewS3(ctx context.Context, config Config) (*S3Store, error) {
	if config.Bucket == "" {
		return nil, errors.New("objectstore: bucket name is required")
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
	}

	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("objectstore: failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
		o.UsePathStyle = config.UsePathStyle
	})

	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   config.Bucket,
		baseURL:  PublicBaseURL(config),
	}, nil
}

// Put streams the object to the bucket and returns its public URL.
func (store *S3Store) Put(ctx context.Context, object Object) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(store.bucket),
		Key:    aws.String(object.Key),
		Body:   object.Body,
	}
	if object.ContentType != "" {
		input.ContentType = aws.String(object.ContentType)
	}

	if _, err := store.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("objectstore: failed to upload %s: %w", object.Key, err)
	}

	return store.URL(object.Key), nil
}

// Delete removes an object. Deleting a missing key is not an error.
func (store *S3Store) Delete(ctx context.Context, key string) error {
	_, err := store.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(store.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("objectstore: failed to delete %s: %w", key, err)
	}
	return nil
}

// Ping checks that the bucket is reachable with the configured credentials.
func (store *S3Store) Ping(ctx context.Context) error {
	_, err := store.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(store.bucket)})
	if err != nil {
		return fmt.Errorf("objectstore: bucket %s unreachable: %w", store.bucket, err)
	}
	return nil
}

// URL returns the public URL of key.
func (store *S3Store) URL(key string) string {
	return store.baseURL + "/" + key
}

// PublicBaseURL derives the URL prefix objects are served from.
//
//   - PublicBaseURL set: used as is.
//   - Custom endpoint: endpoint/bucket (path style).
//   - Otherwise: the virtual-hosted AWS URL.
func PublicBaseURL(config Config) string {
	switch {
	case config.PublicBaseURL != "":
		return strings.TrimRight(config.PublicBaseURL, "/")
	case config.Endpoint != "":
		return strings.TrimRight(config.Endpoint, "/") + "/" + config.Bucket
	default:
		region := config.Region
		if region == "" {
			region = "us-east-1"
		}
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", config.Bucket, region)
	}
}

// # Memory

// MemoryStore keeps objects in process. Used by tests and the memory driver.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
	baseURL string
	// FailPut forces Put to fail when set.
	FailPut error
}

// NewMemory creates an empty in-process store serving URLs under baseURL.
func NewMemory(baseURL string) *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Put reads the whole body into memory.
func (store *MemoryStore) Put(_ context.Context, object Object) (string, error) {
	if store.FailPut != nil {
		return "", store.FailPut
	}

	data, err := io.ReadAll(object.Body)
	if err != nil {
		return "", fmt.Errorf("objectstore: read body: %w", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	store.objects[object.Key] = data
	store.types[object.Key] = object.ContentType

	return store.URL(object.Key), nil
}

// Delete removes an object.
func (store *MemoryStore) Delete(_ context.Context, key string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.objects, key)
	delete(store.types, key)
	return nil
}

// Ping always succeeds.
func (store *MemoryStore) Ping(context.Context) error { return nil }

// URL returns the public URL of key.
func (store *MemoryStore) URL(key string) string {
	return store.baseURL + "/" + key
}

// Get returns a stored object and its content type.
func (store *MemoryStore) Get(key string) ([]byte, string, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	data, ok := store.objects[key]
	return data, store.types[key], ok
}

// Len returns the number of stored objects.
func (store *MemoryStore) Len() int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.objects)
}
