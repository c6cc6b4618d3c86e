// Package storage reads media bytes and file metadata from the configured
// storage backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

const defaultMimeType = "application/octet-stream"

// ErrNotConnected is returned when the backend has no usable credentials.
var ErrNotConnected = errors.New("storage backend is not connected")

// UpstreamError reports a non-success status from the backend.
type UpstreamError struct {
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("storage backend returned status %d", e.Status)
}

// Object is an open byte stream. Header values are passed through verbatim
// and are empty when the backend did not send them. The caller must close
// Body.
type Object struct {
	Body          io.ReadCloser
	StatusCode    int
	ContentType   string
	ContentLength string
	ContentRange  string
	AcceptRanges  string
}

type FileInfo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	MimeType    string `json:"mimeType"`
	SizeBytes   *int64 `json:"sizeBytes,omitempty"`
	WebViewLink string `json:"webViewLink,omitempty"`
}

type FileList struct {
	Files         []FileInfo `json:"files"`
	NextPageToken *string    `json:"nextPageToken"`
}

type ListOptions struct {
	Query     string
	PageToken string
	PageSize  int
}

// Provider is a read-only view over the storage backend.
type Provider interface {
	// Open streams the file. rangeHeader is forwarded as-is when non-empty.
	Open(ctx context.Context, fileID, rangeHeader string) (*Object, error)
	Stat(ctx context.Context, fileID string) (*FileInfo, error)
	List(ctx context.Context, opts ListOptions) (*FileList, error)
}
