package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

const markdownContentType = "text/markdown; charset=utf-8"

type s3API interface {
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
	HeadObjectWithContext(ctx aws.Context, input *s3.HeadObjectInput, opts ...request.Option) (*s3.HeadObjectOutput, error)
	GetBucketLocationWithContext(ctx aws.Context, input *s3.GetBucketLocationInput, opts ...request.Option) (*s3.GetBucketLocationOutput, error)
}

// S3Publisher uploads documents as public objects. Credentials come from the
// standard AWS environment and shared config.
type S3Publisher struct {
	client s3API
	bucket string
	region string

	mu           sync.Mutex
	bucketRegion string
}

func NewS3Publisher(bucket, region string) (*S3Publisher, error) {
	if bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if region == "" {
		region = "us-east-1"
	}
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return &S3Publisher{client: s3.New(sess), bucket: bucket, region: region}, nil
}

func (p *S3Publisher) Publish(ctx context.Context, key, markdown string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(markdown),
		ContentType: aws.String(markdownContentType),
		ACL:         aws.String(s3.ObjectCannedACLPublicRead),
	}

	_, err := p.client.PutObjectWithContext(ctx, input)
	if err != nil && aclUnsupported(err) {
		// Buckets with owner-enforced object ownership reject ACLs.
		input.ACL = nil
		input.Body = strings.NewReader(markdown)
		_, err = p.client.PutObjectWithContext(ctx, input)
	}
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return p.publicURL(ctx, key), nil
}

func (p *S3Publisher) Lookup(ctx context.Context, key string) (string, error) {
	_, err := p.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to check %s: %w", key, err)
	}
	return p.publicURL(ctx, key), nil
}

func (p *S3Publisher) publicURL(ctx context.Context, key string) string {
	region := p.resolveRegion(ctx)
	if region == "us-east-1" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", p.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, region, key)
}

// resolveRegion asks S3 where the bucket lives so URLs do not redirect.
// A failed lookup falls back to the configured region and is retried next time.
func (p *S3Publisher) resolveRegion(ctx context.Context) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bucketRegion != "" {
		return p.bucketRegion
	}

	out, err := p.client.GetBucketLocationWithContext(ctx, &s3.GetBucketLocationInput{Bucket: aws.String(p.bucket)})
	if err != nil {
		return p.region
	}
	p.bucketRegion = s3.NormalizeBucketLocation(aws.StringValue(out.LocationConstraint))
	return p.bucketRegion
}

func aclUnsupported(err error) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	switch aerr.Code() {
	case "AccessControlListNotSupported", "InvalidRequest":
		return true
	}
	return false
}

func isNotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case "NotFound", s3.ErrCodeNoSuchKey, "404":
			return true
		}
	}
	return false
}
