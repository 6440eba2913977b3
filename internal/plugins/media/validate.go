package media

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/keyxmakerx/folio/internal/apperror"
)

// allowedTypes is the upload allow-list. Anything absent is KindRejected.
var allowedTypes = map[string]Kind{
	"image/jpeg":      KindRaster,
	"image/png":       KindRaster,
	"image/gif":       KindRaster,
	"image/webp":      KindRaster,
	"image/svg+xml":   KindVector,
	"application/pdf": KindDocument,
}

// extensionFor maps allowed MIME types to the extension used when the
// client filename has none.
var extensionFor = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/gif":       "gif",
	"image/webp":      "webp",
	"image/svg+xml":   "svg",
	"application/pdf": "pdf",
}

// normalizeMIME lowercases a MIME type and drops parameters
// ("image/PNG; charset=x" -> "image/png").
func normalizeMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// Classify resolves a declared MIME type to its Kind.
func Classify(mimeType string) Kind {
	if k, ok := allowedTypes[normalizeMIME(mimeType)]; ok {
		return k
	}
	return KindRejected
}

// ValidateUpload is the single gate before anything is written. It checks
// the declared type against the allow-list and verifies the bytes actually
// are that type, so a renamed executable cannot pass as a PNG.
func ValidateUpload(declaredMIME string, data []byte) (Kind, error) {
	if len(data) == 0 {
		return KindRejected, apperror.NewBadRequest("file is empty")
	}

	mimeType := normalizeMIME(declaredMIME)
	kind := Classify(mimeType)
	if kind == KindRejected {
		return KindRejected, apperror.NewValidation(
			fmt.Sprintf("unsupported file type: %q", declaredMIME),
		).WithType("unsupported_media_type")
	}

	detected := mimetype.Detect(data)
	if !matchesDetected(detected, mimeType) {
		return KindRejected, apperror.NewValidation(
			fmt.Sprintf("file content (%s) does not match declared type %s", detected.String(), mimeType),
		).WithType("content_mismatch")
	}
	return kind, nil
}

// matchesDetected walks the detected type and its parents so that e.g. an
// SVG detected through the XML branch still matches image/svg+xml.
func matchesDetected(detected *mimetype.MIME, want string) bool {
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(want) {
			return true
		}
	}
	return false
}
