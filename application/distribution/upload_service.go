package distribution

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"squeeze-audio/domain/distribution"

	"github.com/dustin/go-humanize"
)

// UploadService publishes converted audio files to Google Drive
type UploadService struct {
	driveClient distribution.DriveClient
	folderID    string
	output      io.Writer
}

// NewUploadService creates a new upload service
func NewUploadService(client distribution.DriveClient, folderID string, output io.Writer) *UploadService {
	if output == nil {
		output = io.Discard
	}
	return &UploadService{
		driveClient: client,
		folderID:    folderID,
		output:      output,
	}
}

// UploadAudio uploads an audio file, replacing any same-named file in the folder,
// and sets public sharing
func (s *UploadService) UploadAudio(ctx context.Context, audioPath, mimeType string) (*distribution.UploadResult, error) {
	st, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("file does not exist: %s", audioPath)
	}

	fileName := filepath.Base(audioPath)

	existing, err := s.driveClient.FindFileByName(ctx, s.folderID, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing file: %w", err)
	}

	var reclaimed int64
	if existing != nil {
		reclaimed = existing.Size
	}

	quota, err := s.driveClient.GetStorageQuota(ctx)
	if err != nil {
		return nil, err
	}
	if !quota.HasSpaceFor(st.Size(), reclaimed) {
		return nil, fmt.Errorf("%w: need %s, %s available",
			distribution.ErrInsufficientStorage, humanize.IBytes(uint64(st.Size())), humanize.IBytes(uint64(quota.AvailableBytes)))
	}

	if existing != nil {
		fmt.Fprintf(s.output, "Replacing existing %s (%s)\n", existing.Name, humanize.IBytes(uint64(existing.Size)))
		if err := s.driveClient.DeletePermanently(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to delete existing file %s: %w", existing.Name, err)
		}
	}

	fmt.Fprintf(s.output, "Uploading %s to Google Drive\n", fileName)

	result, err := s.driveClient.UploadAndShare(ctx, distribution.UploadRequest{
		LocalPath: audioPath,
		FileName:  fileName,
		FolderID:  s.folderID,
		MimeType:  mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload and share %s: %w", fileName, err)
	}

	return result, nil
}
