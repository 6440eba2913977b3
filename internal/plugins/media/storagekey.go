package media

import (
	"errors"
	"path"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrNoExtension is returned by NewStorageKey when the filename carries no
// usable extension. Callers fall back to NewStorageKeyWithDefault.
var ErrNoExtension = errors.New("filename has no extension")

const (
	maxBasenameLen = 64
	maxExtLen      = 10
)

// NewStorageKey derives a collision-resistant relative path for an upload:
//
//	{yyyy}/{mm}/{ulid}-{sanitized-basename}.{ext}
//
// The ULID carries 80 bits of randomness, so keys do not collide in
// practice without consulting storage.
func NewStorageKey(filename string, now time.Time) (string, error) {
	base, ext := splitFilename(filename)
	if ext == "" {
		return "", ErrNoExtension
	}
	return buildKey(base, ext, now), nil
}

// NewStorageKeyWithDefault is NewStorageKey with defaultExt used when the
// filename has no extension. It fails only if defaultExt is unusable too.
func NewStorageKeyWithDefault(filename, defaultExt string, now time.Time) (string, error) {
	base, ext := splitFilename(filename)
	if ext == "" {
		ext = sanitizeExt(defaultExt)
	}
	if ext == "" {
		return "", ErrNoExtension
	}
	return buildKey(base, ext, now), nil
}

// VariantKey returns the storage key of a named variant, stored beside the
// original: 2025/03/01h...-photo.jpg -> 2025/03/01h...-photo_thumb.webp.
func VariantKey(storageKey, name string) string {
	dir, file := path.Split(storageKey)
	stem := strings.TrimSuffix(file, path.Ext(file))
	return dir + stem + "_" + name + ".webp"
}

func buildKey(base, ext string, now time.Time) string {
	now = now.UTC()
	token := strings.ToLower(ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String())
	return now.Format("2006/01") + "/" + token + "-" + sanitizeBasename(base) + "." + ext
}

// splitFilename strips any client-side directory (either separator) and
// splits the remainder into basename and sanitized extension.
func splitFilename(filename string) (string, string) {
	name := filename
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	ext := path.Ext(name)
	if ext == "" || ext == name {
		// No dot, or a dotfile like ".env" with nothing before the dot.
		return name, ""
	}
	return strings.TrimSuffix(name, ext), sanitizeExt(ext)
}

// sanitizeExt lowercases an extension and keeps only ASCII alphanumerics.
func sanitizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	var b strings.Builder
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > maxExtLen {
		out = out[:maxExtLen]
	}
	return out
}

// sanitizeBasename lowercases the name and collapses every run of
// characters outside [a-z0-9] into a single hyphen.
func sanitizeBasename(base string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(base) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	out := b.String()
	if len(out) > maxBasenameLen {
		out = strings.TrimRight(out[:maxBasenameLen], "-")
	}
	if out == "" {
		return "file"
	}
	return out
}
