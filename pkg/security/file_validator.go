package security

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxVideoBytes is the relay's upload ceiling (2 GiB).
const MaxVideoBytes int64 = 2 * 1024 * 1024 * 1024

// User-facing relay validation failures.
var (
	ErrVideoRequired     = errors.New("Video file is required")
	ErrVideoTooLarge     = errors.New("File size exceeds 2GB limit")
	ErrVideoExtension    = errors.New("Please upload a .mp4 or .mov file")
	ErrPlatformsRequired = errors.New("Platforms are required")
	ErrPlatformsFormat   = errors.New("Invalid platforms format")
	ErrPlatformsEmpty    = errors.New("At least one platform is required")
)

// FileValidationResult contains the result of content sniffing
type FileValidationResult struct {
	Extension    string   // Lowercased file extension
	DetectedMIME string   // MIME type sniffed from the first bytes
	Warnings     []string // Mismatches worth logging, never fatal
}

// Allowed file extensions (strict whitelist)
var allowedExtensions = map[string]bool{
	".mp4": true,
	".mov": true,
}

// Acceptable MIME types per extension. Browsers and phones disagree about
// .mov, so a mismatch is only reported.
var expectedMIMETypes = map[string][]string{
	".mp4": {"video/mp4", "video/x-m4v", "application/mp4"},
	".mov": {"video/quicktime", "video/mp4"},
}

// ISO base media files carry an "ftyp" box at offset 4
var ftypBox = []byte("ftyp")

// ValidateVideoFile checks presence, size and extension, in that order.
// limit <= 0 means MaxVideoBytes.
func ValidateVideoFile(filename string, size, limit int64) error {
	if limit <= 0 {
		limit = MaxVideoBytes
	}
	if filename == "" {
		return ErrVideoRequired
	}
	if size > limit {
		return ErrVideoTooLarge
	}
	return ValidateFileExtension(filename)
}

// ValidateFileExtension checks only the extension, case-insensitively.
func ValidateFileExtension(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return ErrVideoExtension
	}
	return nil
}

// SniffVideo inspects the first bytes of an upload. declared is the client's
// Content-Type and may be empty.
func SniffVideo(filename string, head []byte, declared string) FileValidationResult {
	ext := strings.ToLower(filepath.Ext(filename))
	result := FileValidationResult{
		Extension:    ext,
		DetectedMIME: mimetype.Detect(head).String(),
	}

	if len(head) < 8 || !bytes.Equal(head[4:8], ftypBox) {
		result.Warnings = append(result.Warnings, "missing ftyp box")
	}

	detected := baseMIME(result.DetectedMIME)
	if !mimeAllowed(ext, detected) {
		result.Warnings = append(result.Warnings, "detected mime "+detected+" does not match "+ext)
	}
	if declared != "" && !mimeAllowed(ext, baseMIME(declared)) {
		result.Warnings = append(result.Warnings, "declared mime "+declared+" does not match "+ext)
	}
	return result
}

// ContentTypeFor picks the MIME type sent to storage for a validated file.
func ContentTypeFor(filename, declared string) string {
	if d := baseMIME(declared); strings.HasPrefix(d, "video/") {
		return d
	}
	if strings.ToLower(filepath.Ext(filename)) == ".mov" {
		return "video/quicktime"
	}
	return "video/mp4"
}

func mimeAllowed(ext, mime string) bool {
	for _, m := range expectedMIMETypes[ext] {
		if m == mime {
			return true
		}
	}
	return false
}

func baseMIME(v string) string {
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = v[:i]
	}
	return strings.ToLower(strings.TrimSpace(v))
}
