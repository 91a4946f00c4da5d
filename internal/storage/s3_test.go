package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewS3Store(t *testing.T) {
	artifactDir := filepath.Join(os.TempDir(), "montage_s3_test_"+randomSuffix())
	defer os.RemoveAll(artifactDir)

	cfg := S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:4566", // LocalStack-like endpoint
		Prefix:          "renders",
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}

	store, err := NewS3Store(artifactDir, cfg)
	if err != nil {
		t.Fatalf("NewS3Store() error = %v", err)
	}

	if store.bucket != cfg.Bucket {
		t.Errorf("bucket = %v, want %v", store.bucket, cfg.Bucket)
	}
	if store.region != cfg.Region {
		t.Errorf("region = %v, want %v", store.region, cfg.Region)
	}
	if store.prefix != cfg.Prefix {
		t.Errorf("prefix = %v, want %v", store.prefix, cfg.Prefix)
	}
}

func TestS3Store_InheritsLocalStore(t *testing.T) {
	artifactDir := filepath.Join(os.TempDir(), "montage_s3_test_"+randomSuffix())
	defer os.RemoveAll(artifactDir)

	cfg := S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:4566",
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}

	store, err := NewS3Store(artifactDir, cfg)
	if err != nil {
		t.Fatalf("NewS3Store() error = %v", err)
	}

	ctx := context.Background()

	// Inherited SaveArtifact
	src := writeSourceFile(t, "artifact data")
	saved, err := store.SaveArtifact(ctx, src, "render-a.mp4")
	if err != nil {
		t.Fatalf("SaveArtifact() error = %v", err)
	}

	// Inherited ArtifactPath
	path, err := store.ArtifactPath("render-a.mp4")
	if err != nil {
		t.Fatalf("ArtifactPath() error = %v", err)
	}
	if path != saved {
		t.Errorf("ArtifactPath() = %v, want %v", path, saved)
	}
}

func TestS3Store_UploadArtifact_MockServer(t *testing.T) {
	// Create a mock S3 server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT method, got %s", r.Method)
		}

		if !strings.Contains(r.URL.Path, "renders/render-b.mp4") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read body: %v", err)
		}
		if string(body) != "final video bytes" {
			t.Errorf("unexpected body: %s", string(body))
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	artifactDir := filepath.Join(os.TempDir(), "montage_s3_mock_test_"+randomSuffix())
	defer os.RemoveAll(artifactDir)

	cfg := S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        server.URL,
		Prefix:          "renders",
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}

	store, err := NewS3Store(artifactDir, cfg)
	if err != nil {
		t.Fatalf("NewS3Store() error = %v", err)
	}

	ctx := context.Background()
	src := writeSourceFile(t, "final video bytes")
	saved, err := store.SaveArtifact(ctx, src, "render-b.mp4")
	if err != nil {
		t.Fatalf("SaveArtifact() error = %v", err)
	}

	url, err := store.UploadArtifact(ctx, saved)
	if err != nil {
		t.Fatalf("UploadArtifact() error = %v", err)
	}

	expectedURL := "https://test-bucket.s3.us-east-1.amazonaws.com/renders/render-b.mp4"
	if url != expectedURL {
		t.Errorf("url = %v, want %v", url, expectedURL)
	}
}
