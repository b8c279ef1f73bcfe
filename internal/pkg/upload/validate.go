package upload

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxProofSize caps the size of a payment proof upload.
const MaxProofSize = 10 << 20

var (
	ErrUnsupportedType = errors.New("only JPG, PNG, WEBP and PDF files are accepted as payment proof")
	ErrEmptyFile       = errors.New("uploaded file is empty")
	ErrTooLarge        = errors.New("uploaded file exceeds the size limit")
)

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".pdf":  true,
}

var allowedMime = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// ValidateProofBySniff checks filename's extension and the content head
// against the accepted proof formats. It returns the detected mime type and
// the canonical extension to store the object under.
func ValidateProofBySniff(filename string, head []byte) (string, string, error) {
	if len(head) == 0 {
		return "", "", ErrEmptyFile
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", "", ErrUnsupportedType
	}

	detected := mimetype.Detect(head)
	// walk up the hierarchy so e.g. a PDF variant still matches application/pdf
	for m := detected; m != nil; m = m.Parent() {
		if canonical, ok := allowedMime[m.String()]; ok {
			return m.String(), canonical, nil
		}
	}
	return "", "", ErrUnsupportedType
}
