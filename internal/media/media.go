// Package media is the narrow interface to attachment storage. The upload
// pipeline classifies incoming files as image or video and hands back a
// reference the message record can carry; serving the bytes is left to the
// surrounding application or a CDN.
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ripple-social/internal/models"
	"ripple-social/internal/utils"

	"github.com/google/uuid"
)

// Classify maps a MIME type to an attachment kind. Anything that is not a
// video is treated as an image, matching the upload pipeline's behavior.
func Classify(mimeType string) models.AttachmentKind {
	if strings.HasPrefix(mimeType, "video") {
		return models.AttachmentVideo
	}
	return models.AttachmentImage
}

// Store persists uploaded attachment bytes and returns a reference to them.
type Store interface {
	Store(ctx context.Context, data []byte, mimeType string) (*models.Attachment, error)
}

// DiskStore writes attachments to a local directory. It stands in for the
// hosted media service in development and tests.
type DiskStore struct {
	dir     string
	baseURL string
}

func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (d *DiskStore) Store(_ context.Context, data []byte, mimeType string) (*models.Attachment, error) {
	if len(data) == 0 {
		return nil, utils.NewValidationError("empty attachment")
	}

	name := uuid.NewString() + extensionFor(mimeType)
	if err := os.WriteFile(filepath.Join(d.dir, name), data, 0o644); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "store attachment", err)
	}

	return &models.Attachment{
		URL:  d.baseURL + "/" + name,
		Kind: Classify(mimeType),
	}, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "video/quicktime":
		return ".mov"
	default:
		return ".bin"
	}
}
