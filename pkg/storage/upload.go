package storage

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// DefaultMaxFileSize is the per-file ceiling used when Limits leaves it unset.
const DefaultMaxFileSize int64 = 20 * 1000 * 1000

// FileInfo is the client-side metadata of a file selected for upload.
type FileInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mimeType"`
}

// Upload wraps a file with its signed URLs and upload progress in percent.
type Upload struct {
	File       FileInfo `json:"file"`
	UploadURL  string   `json:"uploadUrl,omitempty"`
	PreviewURL string   `json:"previewUrl,omitempty"`
	Progress   int      `json:"progress"`
}

// IsImage reports whether a preview can be rendered inline.
func (u Upload) IsImage() bool {
	return strings.HasPrefix(u.File.MIMEType, "image/")
}

// Limits bound a single upload batch. Accept entries are exact MIME types
// or wildcards such as "image/*"; an empty list accepts everything.
type Limits struct {
	MaxFileCount int
	MaxFileSize  int64
	Accept       []string
}

// LimitError describes the first file that broke a limit.
type LimitError struct {
	Err     error
	File    string
	Message string
}

func (e *LimitError) Error() string { return e.Message }
func (e *LimitError) Unwrap() error { return e.Err }

// Validate checks a batch against the limits.
func (l Limits) Validate(files []FileInfo) error {
	if l.MaxFileCount > 0 && len(files) > l.MaxFileCount {
		return &LimitError{
			Err:     ErrTooManyFiles,
			Message: fmt.Sprintf("You can only upload %d files at a time", l.MaxFileCount),
		}
	}

	maxSize := l.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	for _, f := range files {
		switch {
		case f.Size <= 0:
			return &LimitError{Err: ErrEmptyFile, File: f.Name, Message: fmt.Sprintf("File %s is empty", f.Name)}
		case f.Size > maxSize:
			return &LimitError{
				Err:     ErrFileTooLarge,
				File:    f.Name,
				Message: fmt.Sprintf("File %s is larger than %s", f.Name, FormatBytes(maxSize, false)),
			}
		case !l.accepts(f.MIMEType):
			return &LimitError{Err: ErrUnsupportedType, File: f.Name, Message: fmt.Sprintf("File %s has an unsupported type", f.Name)}
		}
	}
	return nil
}

func (l Limits) accepts(mime string) bool {
	if len(l.Accept) == 0 {
		return true
	}
	mime = strings.ToLower(strings.TrimSpace(mime))
	for _, a := range l.Accept {
		a = strings.ToLower(strings.TrimSpace(a))
		if prefix, ok := strings.CutSuffix(a, "/*"); ok {
			if strings.HasPrefix(mime, prefix+"/") {
				return true
			}
			continue
		}
		if a == mime {
			return true
		}
	}
	return false
}

// FormatBytes renders a size for display. Accurate uses binary units (KiB, MiB).
func FormatBytes(size int64, accurate bool) string {
	if size <= 0 {
		return "0 B"
	}
	if accurate {
		return humanize.IBytes(uint64(size))
	}
	return humanize.Bytes(uint64(size))
}
