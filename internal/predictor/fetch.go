package predictor

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"sales-predictor/internal/common/config"
	commonhttp "sales-predictor/internal/common/http"
)

// Fetcher retrieves a model artifact from remote storage.
type Fetcher interface {
	Fetch(ctx context.Context, dst io.Writer) error
	Source() string
}

// HTTPFetcher downloads the artifact with a GET request.
type HTTPFetcher struct {
	client *commonhttp.Client
	url    string
}

func NewHTTPFetcher(client *commonhttp.Client, url string) *HTTPFetcher {
	return &HTTPFetcher{client: client, url: url}
}

func (f *HTTPFetcher) Source() string { return "http" }

func (f *HTTPFetcher) Fetch(ctx context.Context, dst io.Writer) error {
	n, err := f.client.Download(ctx, f.url, dst)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("GET %s: empty body", f.url)
	}
	return nil
}

// MinioFetcher reads the artifact from an S3-compatible bucket.
type MinioFetcher struct {
	client *minio.Client
	bucket string
	object string
}

func NewMinioFetcher(cfg config.MinioConfig) (*MinioFetcher, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: "us-east-1",
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioFetcher{client: client, bucket: cfg.Bucket, object: cfg.Object}, nil
}

func (f *MinioFetcher) Source() string { return "minio" }

func (f *MinioFetcher) Fetch(ctx context.Context, dst io.Writer) error {
	obj, err := f.client.GetObject(ctx, f.bucket, f.object, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", f.bucket, f.object, err)
	}
	defer obj.Close()

	if _, err := io.Copy(dst, obj); err != nil {
		return fmt.Errorf("read %s/%s: %w", f.bucket, f.object, err)
	}
	return nil
}

// NewFetcher picks the fetcher for cfg.Source. It returns nil for source
// "none" or when no remote location is configured.
func NewFetcher(cfg config.ModelConfig) (Fetcher, error) {
	switch cfg.Source {
	case config.ModelSourceMinio:
		return NewMinioFetcher(cfg.Minio)
	case config.ModelSourceHTTP:
		url := cfg.ResolvedRemoteURL()
		if url == "" {
			return nil, nil
		}
		timeout := config.GetDuration(cfg.DownloadTimeout)
		if timeout <= 0 {
			timeout = 2 * time.Minute
		}
		return NewHTTPFetcher(commonhttp.NewClient(timeout), url), nil
	}
	return nil, nil
}
