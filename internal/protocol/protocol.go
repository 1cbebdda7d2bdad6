// Package protocol defines the API request/response types.
package protocol

// ErrorResponse is returned on API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// DirEntry describes one listed file or folder. Size fields are omitted
// for folders; folder-only fields are omitted for files.
type DirEntry struct {
	Name               string `json:"name"`
	IsFolder           bool   `json:"isFolder"`
	ModifiedTimeMillis int64  `json:"modifiedTimeMillis"`
	SizeBytes          int64  `json:"sizeBytes,omitempty"`
	ItemCount          int    `json:"itemCount,omitempty"`
	HasSubfolders      bool   `json:"hasSubfolders,omitempty"`
}

// ListResponse is returned by GET /api/v1/list.
type ListResponse struct {
	Folders []DirEntry `json:"folders"`
	Files   []DirEntry `json:"files"`
}

// UploadedFile describes one file accepted by the upload pipeline.
type UploadedFile struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

// UploadResponse is returned by POST /api/v1/upload.
type UploadResponse struct {
	OK    bool           `json:"ok"`
	Files []UploadedFile `json:"files"`
}

// MkdirRequest is the body for POST /api/v1/mkdir.
type MkdirRequest struct {
	Category string `json:"category"`
	Path     string `json:"path"`
}

// DeleteRequest is the body for POST /api/v1/delete.
type DeleteRequest struct {
	Category string `json:"category"`
	Path     string `json:"path"`
}

// MoveRequest is the body for POST /api/v1/move.
type MoveRequest struct {
	Category string `json:"category"`
	From     string `json:"from"`
	To       string `json:"to"`
}

// CrossMoveRequest is the body for POST /api/v1/move-cross.
type CrossMoveRequest struct {
	FromCategory string `json:"fromCategory"`
	FromPath     string `json:"fromPath"`
	ToCategory   string `json:"toCategory"`
	ToPath       string `json:"toPath"`
}

// OKResponse is the generic success body for mutation endpoints.
type OKResponse struct {
	OK bool `json:"ok"`
}

// UsageResponse is returned by GET /api/v1/usage.
type UsageResponse struct {
	UsedBytes      int64 `json:"usedBytes"`
	AvailableBytes int64 `json:"availableBytes"`
	QuotaBytes     int64 `json:"quotaBytes,omitempty"`
}
