/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package spill

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

func init() {
	Register("s3", func(location string) (Spiller, error) { return NewS3(location) })
}

type s3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
}

// NewS3 builds a Spiller backed by an S3 bucket. location is
// "bucket/prefix"; credentials and region come from the default AWS
// credential chain (env vars, shared config, instance profile), same
// as the teacher's cloud provider package.
func NewS3(location string) (Spiller, error) {
	bucket, prefix, err := splitLocation(location)
	if err != nil {
		return nil, err
	}
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, "spill: loading AWS config")
	}
	client := s3.NewFromConfig(cfg)
	store := &s3Store{client: client, uploader: manager.NewUploader(client), bucket: bucket}
	return newObjectSpiller(store, prefix), nil
}

func (s *s3Store) put(ctx context.Context, key string, data []byte) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

func (s *s3Store) get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *s3Store) name() string { return "s3://" + s.bucket }

// splitLocation parses "bucket/prefix" (the prefix may itself contain
// slashes; only the first segment is the bucket).
func splitLocation(location string) (bucket, prefix string, err error) {
	bucket, prefix, ok := strings.Cut(location, "/")
	if !ok || bucket == "" {
		return "", "", errors.Errorf("spill: location %q must be \"bucket/prefix\"", location)
	}
	return bucket, prefix, nil
}
