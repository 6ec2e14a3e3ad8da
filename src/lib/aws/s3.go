package aws

import (
	"bytes"
	"context"
	"log"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

func GetS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("Could not load default config: %s\n", err.Error())
		return nil, err
	}
	return s3.NewFromConfig(cfg), nil
}

// ReportUploader writes generated reports under prefix in one bucket.
type ReportUploader struct {
	client S3API
	bucket string
	prefix string
}

func NewReportUploader(client S3API, bucket, prefix string) *ReportUploader {
	return &ReportUploader{client: client, bucket: bucket, prefix: prefix}
}

// Upload stores body at prefix/name and returns the object key.
func (u *ReportUploader) Upload(ctx context.Context, name string, body []byte, contentType string) (string, error) {
	key := path.Join(u.prefix, name)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		log.Printf("Could not put object to S3 bucket: %s\n", err.Error())
		return "", err
	}
	log.Printf("Added object '%s' to bucket '%s'", key, u.bucket)
	return key, nil
}
