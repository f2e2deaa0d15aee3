package models

// UploadStatus tracks an attachment's byte transfer, independent of the
// owning case's SyncStatus: an attachment can still be uploading after the
// case metadata has synced.
type UploadStatus string

const (
	UploadStatusPending   UploadStatus = "pending"
	UploadStatusUploading UploadStatus = "uploading"
	UploadStatusUploaded  UploadStatus = "uploaded"
	UploadStatusFailed    UploadStatus = "failed"
)

// Attachment is a captured file (photo/document) tied to a Case and
// optionally a FormSubmission. FormID is empty when the attachment belongs
// to the case directly.
type Attachment struct {
	ID     string `json:"id"`
	CaseID string `json:"case_id"`
	FormID string `json:"form_id,omitempty"`

	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`

	// On-device paths. Thumbnail/compressed variants may be empty.
	// Local only, never sent to the backend.
	LocalPath      string `json:"-"`
	ThumbnailPath  string `json:"-"`
	CompressedPath string `json:"-"`

	UploadStatus   UploadStatus `json:"-"`
	UploadProgress int          `json:"-"`

	// Arbitrary metadata blob, opaque at this layer.
	Metadata []byte `json:"metadata,omitempty"`

	SyncStatus SyncStatus `json:"-"`
	Version    int64      `json:"version"`
	CreatedAt  int64      `json:"created_at"`
}
