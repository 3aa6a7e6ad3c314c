package objectclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/markdave123-py/Assist/internal/core"
)

// MaxObjectSize bounds documents read fully into memory for ingestion.
const MaxObjectSize = 32 << 20

type S3Client struct {
	client *s3.Client
}

func NewS3Client(awsCfg aws.Config, log *slog.Logger) core.ObjectClient {
	if log != nil {
		log.Info("S3 client ready", "region", awsCfg.Region)
	}
	return &S3Client{client: s3.NewFromConfig(awsCfg)}
}

// GetFile downloads a whole object, refusing objects above MaxObjectSize.
func (c *S3Client) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	ctxGet, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	resp, err := c.client.GetObject(ctxGet, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	defer resp.Body.Close()

	return readLimited(resp.Body, MaxObjectSize)
}

// GetObjectReader streams an object. The caller closes the reader; ctx must
// stay alive until it is done reading.
func (c *S3Client) GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	resp, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}

	return resp.Body, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("object exceeds %d bytes", limit)
	}
	return body, nil
}
