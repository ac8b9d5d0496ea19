package predictor

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-predictor/internal/common/config"
	"sales-predictor/internal/common/errors"
	commonhttp "sales-predictor/internal/common/http"
	"sales-predictor/internal/common/logger"
)

type stubFetcher struct {
	payload []byte
	err     error
	calls   int
}

func (s *stubFetcher) Source() string { return "stub" }

func (s *stubFetcher) Fetch(ctx context.Context, dst io.Writer) error {
	s.calls++
	if s.err != nil {
		_, _ = dst.Write([]byte("partial"))
		return s.err
	}
	_, err := dst.Write(s.payload)
	return err
}

func TestLoader_LocalFileSkipsFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, encodeArtifact(t, smallArtifact(linearSpec())), 0o600))

	fetcher := &stubFetcher{err: stderrors.New("must not be called")}
	m, err := NewLoader(path, fetcher, logger.NewTestLogger(t)).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-model", m.Name())
	assert.Zero(t, fetcher.calls)
}

func TestLoader_MissingFileFetchesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "model.json")
	fetcher := &stubFetcher{payload: encodeArtifact(t, smallArtifact(linearSpec()))}
	loader := NewLoader(path, fetcher, logger.NewTestLogger(t))

	m, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.1.0", m.Version())
	assert.Equal(t, 1, fetcher.calls)
	assert.FileExists(t, path)

	// second start finds the file
	_, err = loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)
}

func TestLoader_FetchFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	fetcher := &stubFetcher{err: stderrors.New("connection reset")}

	_, err := NewLoader(path, fetcher, logger.NewNoOpLogger()).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeModelDownloadFailed))
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoFileExists(t, path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoader_NoFetcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	_, err := NewLoader(path, nil, logger.NewNoOpLogger()).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeModelDownloadFailed))
}

func TestLoader_CorruptLocalFileIsNotRefetched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte("not a model"), 0o600))
	fetcher := &stubFetcher{payload: encodeArtifact(t, smallArtifact(linearSpec()))}

	_, err := NewLoader(path, fetcher, logger.NewNoOpLogger()).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeModelDecodeFailed))
	assert.Zero(t, fetcher.calls)
}

func TestLoader_DownloadedGarbageFailsDecode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	fetcher := &stubFetcher{payload: []byte("<html>quota exceeded</html>")}

	_, err := NewLoader(path, fetcher, logger.NewNoOpLogger()).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeModelDecodeFailed))
}

func TestHTTPFetcher(t *testing.T) {
	body := encodeArtifact(t, smallArtifact(linearSpec()))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "abc" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	client := commonhttp.NewClient(5 * time.Second)
	path := filepath.Join(t.TempDir(), "model.json")

	m, err := NewLoader(path, NewHTTPFetcher(client, srv.URL+"/uc?id=abc"), logger.NewNoOpLogger()).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-model", m.Name())

	var sb strings.Builder
	err = NewHTTPFetcher(client, srv.URL+"/uc?id=missing").Fetch(context.Background(), &sb)
	assert.Error(t, err)
}

// fakeS3 serves a single object over the path-style S3 API.
func fakeS3(t *testing.T, bucket, object string, body []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/"+bucket+"/"+object {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message><Key>%s</Key><BucketName>%s</BucketName></Error>`, object, bucket)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		w.Header().Set("ETag", `"0123456789abcdef"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(body)
	}))
}

func TestMinioFetcher(t *testing.T) {
	body := encodeArtifact(t, smallArtifact(linearSpec()))
	srv := fakeS3(t, "models", "sales.json", body)
	defer srv.Close()

	endpoint := strings.TrimPrefix(srv.URL, "http://")
	fetcher, err := NewMinioFetcher(config.MinioConfig{
		Endpoint:        endpoint,
		AccessKeyID:     "ak",
		SecretAccessKey: "sk",
		Bucket:          "models",
		Object:          "sales.json",
	})
	require.NoError(t, err)
	assert.Equal(t, "minio", fetcher.Source())

	path := filepath.Join(t.TempDir(), "model.json")
	m, err := NewLoader(path, fetcher, logger.NewNoOpLogger()).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-model", m.Name())

	missing, err := NewMinioFetcher(config.MinioConfig{Endpoint: endpoint, Bucket: "models", Object: "other.json"})
	require.NoError(t, err)
	var sb strings.Builder
	assert.Error(t, missing.Fetch(context.Background(), &sb))
}

func TestNewFetcher(t *testing.T) {
	f, err := NewFetcher(config.ModelConfig{Source: config.ModelSourceHTTP, DriveFileID: "abc"})
	require.NoError(t, err)
	require.IsType(t, &HTTPFetcher{}, f)
	assert.Equal(t, "https://drive.google.com/uc?id=abc", f.(*HTTPFetcher).url)

	f, err = NewFetcher(config.ModelConfig{Source: config.ModelSourceHTTP})
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = NewFetcher(config.ModelConfig{Source: config.ModelSourceNone})
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = NewFetcher(config.ModelConfig{Source: config.ModelSourceMinio, Minio: config.MinioConfig{Endpoint: "localhost:9000"}})
	require.NoError(t, err)
	assert.IsType(t, &MinioFetcher{}, f)
}
