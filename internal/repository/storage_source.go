package repository

import (
	"context"
	"fmt"
	"strings"

	"pdf-view-session/internal/domain"
	apperrors "pdf-view-session/pkg/errors"
)

// StorageDocumentSource downloads documents from a Supabase Storage bucket.
type StorageDocumentSource struct {
	supabaseClient domain.SupabaseClient
	bucket         string
	logger         domain.Logger
}

func NewStorageDocumentSource(supabaseClient domain.SupabaseClient, bucket string, logger domain.Logger) *StorageDocumentSource {
	return &StorageDocumentSource{
		supabaseClient: supabaseClient,
		bucket:         bucket,
		logger:         logger,
	}
}

// Fetch returns the bytes stored at path inside the bucket.
func (s *StorageDocumentSource) Fetch(ctx context.Context, path string) ([]byte, error) {
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "" {
		return nil, apperrors.NewValidationError("storage path is required")
	}
	if strings.Contains(path, "..") {
		return nil, apperrors.NewValidationError("invalid storage path", path)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := s.supabaseClient.DB()
	if client == nil {
		return nil, apperrors.NewUnavailableError("document storage is not configured", nil)
	}

	data, err := client.Storage.DownloadFile(s.bucket, path)
	if err != nil {
		s.logger.Error("Failed to download document", err, "bucket", s.bucket, "path", path)
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("document %q not found in storage", path))
	}
	s.logger.Info("Document downloaded", "bucket", s.bucket, "path", path, "bytes", len(data))
	return data, nil
}
