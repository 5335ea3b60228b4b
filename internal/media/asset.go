package media

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput     = errors.New("media: input is not a video")
	ErrPermissionDenied = errors.New("media: camera access denied")
	ErrAlreadyRecording = errors.New("media: capture already in progress")
)

type SourceKind string

const (
	Upload        SourceKind = "upload"
	LiveRecording SourceKind = "live_recording"
)

// Asset is an in-memory reference to acquired video data. Exactly one
// asset is active per manager at a time; the previous one's blob is
// released when a new asset is adopted.
type Asset struct {
	ID          string     `json:"id"`
	Source      SourceKind `json:"sourceKind"`
	BlobID      string     `json:"-"`
	ContentType string     `json:"contentType"`
	Size        int64      `json:"sizeBytes"`
	DisplayName string     `json:"displayName"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func newAsset(source SourceKind, blobID, contentType, displayName string, size int64) *Asset {
	return &Asset{
		ID:          uuid.New().String(),
		Source:      source,
		BlobID:      blobID,
		ContentType: contentType,
		Size:        size,
		DisplayName: displayName,
		CreatedAt:   time.Now(),
	}
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".webm": true,
	".mov":  true,
	".mkv":  true,
	".avi":  true,
}

// videoLike accepts anything declared as video, plus files whose type
// headers are unhelpful (octet-stream, empty) but carry a known video
// extension.
func videoLike(name, contentType string) bool {
	if strings.HasPrefix(contentType, "video/") {
		return true
	}
	if contentType == "" || contentType == "application/octet-stream" {
		return videoExtensions[strings.ToLower(filepath.Ext(name))]
	}
	return false
}
