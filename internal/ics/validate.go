package ics

import "strings"

// MaxFileSize is the upload ceiling for calendar files.
const MaxFileSize = 5 * 1024 * 1024

// FileInfo describes an uploaded calendar file before it is read.
type FileInfo struct {
	Name        string
	Size        int64
	ContentType string
}

// Validation is the outcome of ValidateFile.
type Validation struct {
	IsValid bool   `json:"is_valid"`
	Error   string `json:"error,omitempty"`
}

// ValidateFile is a cheap pre-check on an upload. Parse remains the
// authority on whether the content is usable.
func ValidateFile(f FileInfo) Validation {
	if !strings.HasSuffix(strings.ToLower(f.Name), ".ics") {
		return Validation{Error: "File must have .ics extension"}
	}
	if f.Size > MaxFileSize {
		return Validation{Error: "File size must be less than 5MB"}
	}
	if ct := strings.ToLower(f.ContentType); ct != "" &&
		!strings.Contains(ct, "text/calendar") && !strings.Contains(ct, "text/plain") {
		return Validation{Error: "File must be a calendar file"}
	}
	return Validation{IsValid: true}
}
