package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/smithy-go"
)

func TestNewS3Storage(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantError bool
	}{
		{
			name: "valid bucket and region",
			cfg:  Config{Bucket: "uiharness-artifacts", Region: "us-east-1"},
		},
		{
			name: "custom endpoint",
			cfg:  Config{Bucket: "uiharness-artifacts", Region: "us-east-1", Endpoint: "http://localhost:9000"},
		},
		{
			name:      "empty bucket",
			cfg:       Config{Region: "us-east-1"},
			wantError: true,
		},
		{
			name:      "empty region",
			cfg:       Config{Bucket: "uiharness-artifacts"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, err := NewS3Storage(context.Background(), tt.cfg)
			if tt.wantError {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if storage.bucket != tt.cfg.Bucket {
				t.Errorf("bucket mismatch: got %q, want %q", storage.bucket, tt.cfg.Bucket)
			}
			if storage.presignExpiration != defaultPresignExpiry {
				t.Errorf("expected default presign expiry, got %v", storage.presignExpiration)
			}
		})
	}
}

func TestS3Storage_Key(t *testing.T) {
	tests := []struct {
		prefix  string
		path    string
		want    string
		wantErr bool
	}{
		{prefix: "", path: "screenshots/a.png", want: "screenshots/a.png"},
		{prefix: "ci/", path: "screenshots/a.png", want: "ci/screenshots/a.png"},
		{prefix: "/nightly/", path: "screenshots/./b/a.png", want: "nightly/screenshots/b/a.png"},
		{prefix: "ci", path: "../a.png", wantErr: true},
		{prefix: "ci", path: "", wantErr: true},
		{prefix: "ci", path: "/a.png", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s|%s", tt.prefix, tt.path), func(t *testing.T) {
			storage, err := NewS3Storage(context.Background(), Config{Bucket: "b", Region: "us-east-1", Prefix: tt.prefix})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, err := storage.key(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPath) {
					t.Errorf("expected ErrInvalidPath, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("key(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestS3Storage_PresignExpiration(t *testing.T) {
	storage, err := NewS3Storage(context.Background(), Config{Bucket: "b", Region: "us-east-1", PresignExpiry: time.Hour})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if storage.presignExpiration != time.Hour {
		t.Errorf("got %v, want %v", storage.presignExpiration, time.Hour)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
		wantS3  bool
	}{
		{name: "local", cfg: Config{Type: "local", BaseDir: t.TempDir()}},
		{name: "default type is local", cfg: Config{BaseDir: t.TempDir()}},
		{name: "local without base dir", cfg: Config{Type: "local"}, wantErr: errors.New("base_dir")},
		{name: "s3", cfg: Config{Type: "S3", Bucket: "b", Region: "eu-west-1"}, wantS3: true},
		{name: "s3 without bucket", cfg: Config{Type: "s3", Region: "eu-west-1"}, wantErr: errors.New("bucket")},
		{name: "unknown type", cfg: Config{Type: "gcs"}, wantErr: ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, err := New(context.Background(), tt.cfg)
			if tt.wantErr != nil {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if errors.Is(tt.wantErr, ErrUnsupportedType) && !errors.Is(err, ErrUnsupportedType) {
					t.Errorf("expected ErrUnsupportedType, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			_, isS3 := storage.(*S3Storage)
			if isS3 != tt.wantS3 {
				t.Errorf("got %T", storage)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"screenshots/a.png": "image/png",
		"report.json":       "application/json",
		"blob":              "application/octet-stream",
	}
	for p, want := range tests {
		if got := ContentType(p); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", p, got, want)
		}
	}
}

func TestIsS3NotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantTrue bool
	}{
		{
			name:     "nil error",
			err:      nil,
			wantTrue: false,
		},
		{
			name:     "generic error",
			err:      context.Canceled,
			wantTrue: false,
		},
		{
			name:     "no such key",
			err:      fmt.Errorf("get object: %w", &smithy.GenericAPIError{Code: "NoSuchKey"}),
			wantTrue: true,
		},
		{
			name:     "head not found",
			err:      &smithy.GenericAPIError{Code: "NotFound"},
			wantTrue: true,
		},
		{
			name:     "access denied",
			err:      &smithy.GenericAPIError{Code: "AccessDenied"},
			wantTrue: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isS3NotFoundError(tt.err)
			if result != tt.wantTrue {
				t.Errorf("isS3NotFoundError(%v) = %v, want %v", tt.err, result, tt.wantTrue)
			}
		})
	}
}
