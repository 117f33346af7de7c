// Package uploads checks attachments against size and type constraints.
package uploads

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Common errors.
var (
	ErrFileTooLarge    = errors.New("file exceeds maximum size")
	ErrInvalidFileType = errors.New("invalid file type")
	ErrEmptyFile       = errors.New("file is empty")
)

// MB is one mebibyte.
const MB = 1024 * 1024

// UploadConfig configures which files are accepted.
type UploadConfig struct {
	// Name identifies this upload configuration.
	Name string

	// Accept is a list of allowed MIME types. "type/*" wildcards match any
	// subtype.
	Accept []string

	// Extensions lists allowed file name extensions, with the dot.
	Extensions []string

	// MaxFileSize is the maximum file size in bytes.
	MaxFileSize int64
}

// DocumentConfig accepts PDF, Word and image documents up to 25 MB.
func DocumentConfig() *UploadConfig {
	return &UploadConfig{
		Name: "documents",
		Accept: []string{
			"application/pdf",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"image/jpeg",
			"image/png",
		},
		Extensions:  []string{".pdf", ".doc", ".docx", ".jpg", ".jpeg", ".png"},
		MaxFileSize: 25 * MB,
	}
}

// UploadEntry is a checked attachment.
type UploadEntry struct {
	// FileName is the sanitized original file name.
	FileName string `json:"filename"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// ContentType is the detected MIME type.
	ContentType string `json:"content_type"`
}

// Check validates a file against the configuration and returns its entry.
// When data is present its content type is sniffed; otherwise the declared
// type, then the extension, is used.
func (c *UploadConfig) Check(filename string, size int64, declared string, data []byte) (*UploadEntry, error) {
	if data != nil {
		size = int64(len(data))
	}
	if size <= 0 {
		return nil, ErrEmptyFile
	}
	if c.MaxFileSize > 0 && size > c.MaxFileSize {
		return nil, fmt.Errorf("%s is %d bytes: %w", filename, size, ErrFileTooLarge)
	}

	name := SanitizeFilename(filename)
	if len(c.Extensions) > 0 && !c.allowedExtension(name) {
		return nil, fmt.Errorf("%s: %w", name, ErrInvalidFileType)
	}

	contentType := c.detect(name, declared, data)
	if !c.isAllowedType(contentType) {
		return nil, fmt.Errorf("%s is %s: %w", name, contentType, ErrInvalidFileType)
	}

	return &UploadEntry{FileName: name, Size: size, ContentType: contentType}, nil
}

func (c *UploadConfig) detect(name, declared string, data []byte) string {
	if len(data) > 0 {
		detected := mimetype.Detect(data)
		for m := detected; m != nil; m = m.Parent() {
			if c.isAllowedType(m.String()) {
				return baseType(m.String())
			}
		}
		return baseType(detected.String())
	}
	if declared != "" {
		return baseType(declared)
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return baseType(byExt)
	}
	return "application/octet-stream"
}

func (c *UploadConfig) allowedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range c.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (c *UploadConfig) isAllowedType(contentType string) bool {
	contentType = baseType(contentType)
	for _, allowed := range c.Accept {
		if allowed == "*/*" {
			return true
		}
		if strings.HasSuffix(allowed, "/*") {
			prefix := strings.TrimSuffix(allowed, "*")
			if strings.HasPrefix(contentType, prefix) {
				return true
			}
		}
		if allowed == contentType {
			return true
		}
	}
	return false
}

func baseType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// SanitizeFilename strips directories and unsafe characters.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filename)

	filename = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '\x00' {
			return '_'
		}
		return r
	}, filename)

	if len(filename) > 255 {
		ext := filepath.Ext(filename)
		filename = filename[:255-len(ext)] + ext
	}

	return filename
}
