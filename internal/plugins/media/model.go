// Package media manages the media library: upload validation, storage keys,
// WebP variant generation, soft-delete with restore, and the retention sweep
// that purges soft-deleted assets. Files live on the local filesystem under
// a date-partitioned directory structure addressed by storage key.
package media

import (
	"time"
)

// Kind classifies an upload by how the pipeline treats it. It is resolved
// once at validation time so downstream code never matches MIME strings.
type Kind int

const (
	// KindRejected is any MIME type outside the allow-list.
	KindRejected Kind = iota
	// KindRaster images get WebP variants.
	KindRaster
	// KindVector images (SVG) are stored as-is.
	KindVector
	// KindDocument files (PDF) are stored as-is.
	KindDocument
)

// String returns the lowercase name used in logs, metrics and stats.
func (k Kind) String() string {
	switch k {
	case KindRaster:
		return "raster"
	case KindVector:
		return "vector"
	case KindDocument:
		return "document"
	default:
		return "rejected"
	}
}

// HasVariants reports whether uploads of this kind get downscaled variants.
func (k Kind) HasVariants() bool {
	return k == KindRaster
}

// MediaAsset is one uploaded file and its generated renditions.
type MediaAsset struct {
	ID         string     `json:"id"`
	Filename   string     `json:"filename"` // Client-supplied original name.
	MimeType   string     `json:"mime_type"`
	Kind       Kind       `json:"-"`
	Size       int64      `json:"size"`
	StorageKey string     `json:"storage_key"`
	AltText    string     `json:"alt_text"`
	Width      *int       `json:"width"`  // nil for non-raster files.
	Height     *int       `json:"height"` // nil for non-raster files.
	Variants   VariantSet `json:"variants"`
	CreatedAt  time.Time  `json:"created_at"`
	DeletedAt  *time.Time `json:"deleted_at"`
}

// IsDeleted returns true once the asset has been soft-deleted.
func (a *MediaAsset) IsDeleted() bool {
	return a.DeletedAt != nil
}

// Keys returns every storage key the asset occupies on disk: the original
// followed by each variant.
func (a *MediaAsset) Keys() []string {
	keys := []string{a.StorageKey}
	for _, v := range a.Variants.All() {
		keys = append(keys, v.Path)
	}
	return keys
}

// Variant is a single downscaled WebP rendition.
type Variant struct {
	Name   string `json:"-"`
	Path   string `json:"path"` // Storage key of the rendition.
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// VariantSet holds up to one rendition per named size. A nil field means
// the variant was not generated (source too small, non-raster, or failed).
type VariantSet struct {
	Thumb  *Variant `json:"thumb,omitempty"`
	Medium *Variant `json:"medium,omitempty"`
	Large  *Variant `json:"large,omitempty"`
}

// All returns the present variants ordered smallest to largest.
func (s VariantSet) All() []Variant {
	var out []Variant
	for _, v := range []*Variant{s.Thumb, s.Medium, s.Large} {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// IsEmpty reports whether no variant is present.
func (s VariantSet) IsEmpty() bool {
	return s.Thumb == nil && s.Medium == nil && s.Large == nil
}

// Get returns the named variant or nil.
func (s VariantSet) Get(name string) *Variant {
	switch name {
	case VariantThumb:
		return s.Thumb
	case VariantMedium:
		return s.Medium
	case VariantLarge:
		return s.Large
	}
	return nil
}

// set stores v under its name. Unknown names are ignored.
func (s *VariantSet) set(v Variant) {
	v2 := v
	switch v.Name {
	case VariantThumb:
		s.Thumb = &v2
	case VariantMedium:
		s.Medium = &v2
	case VariantLarge:
		s.Large = &v2
	}
}

// withNames fills in Name on each present variant. The name is not part of
// the persisted manifest, it is implied by the field.
func (s VariantSet) withNames() VariantSet {
	if s.Thumb != nil {
		s.Thumb.Name = VariantThumb
	}
	if s.Medium != nil {
		s.Medium.Name = VariantMedium
	}
	if s.Large != nil {
		s.Large.Name = VariantLarge
	}
	return s
}

// Variant names.
const (
	VariantThumb  = "thumb"
	VariantMedium = "medium"
	VariantLarge  = "large"
)

// VariantSpec is a named target width.
type VariantSpec struct {
	Name  string
	Width int
}

// DefaultVariantSpecs are the renditions generated for raster uploads,
// ordered by width.
var DefaultVariantSpecs = []VariantSpec{
	{Name: VariantThumb, Width: 400},
	{Name: VariantMedium, Width: 800},
	{Name: VariantLarge, Width: 1200},
}

// UploadInput holds the raw upload as received by the handler.
type UploadInput struct {
	Filename string
	MimeType string // Declared by the client; verified against content.
	AltText  string
	Data     []byte
}

// ListOptions controls admin listing.
type ListOptions struct {
	Page    int
	PerPage int
	Trashed bool // List soft-deleted assets instead of active ones.
}

// normalize clamps pagination to sane values.
func (o ListOptions) normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.PerPage < 1 || o.PerPage > 100 {
		o.PerPage = 24
	}
	return o
}

// Offset returns the SQL offset for the current page.
func (o ListOptions) Offset() int {
	return (o.Page - 1) * o.PerPage
}

// PurgeCursor is the keyset position of the last candidate seen by the
// cleanup sweep.
type PurgeCursor struct {
	DeletedAt time.Time
	ID        string
}

// StorageStats holds aggregate storage statistics for the admin dashboard.
type StorageStats struct {
	TotalFiles   int                  `json:"total_files"`
	TotalBytes   int64                `json:"total_bytes"`
	TrashedFiles int                  `json:"trashed_files"`
	TrashedBytes int64                `json:"trashed_bytes"`
	ByKind       map[string]KindStats `json:"by_kind"`
}

// KindStats holds per-kind counts and sizes.
type KindStats struct {
	Count int   `json:"count"`
	Bytes int64 `json:"bytes"`
}

// DisplayContext is a requested display size. Width 0 asks for the original.
type DisplayContext struct {
	Width int
}

// Rendition is the file chosen to satisfy a DisplayContext.
type Rendition struct {
	Variant  string // Variant name, or "original".
	Key      string
	MimeType string
	Width    int // 0 when unknown (non-raster originals).
	Height   int
}

// RenditionOriginal names the original file in a Rendition.
const RenditionOriginal = "original"

// mediaResponse is the JSON shape returned by the admin API.
type mediaResponse struct {
	*MediaAsset
	Kind string            `json:"kind"`
	URL  string            `json:"url"`
	URLs map[string]string `json:"variant_urls,omitempty"`
}

// toResponse adds public URLs to an asset for API responses.
func toResponse(a *MediaAsset) mediaResponse {
	resp := mediaResponse{
		MediaAsset: a,
		Kind:       a.Kind.String(),
		URL:        "/media/" + a.ID,
	}
	if vs := a.Variants.All(); len(vs) > 0 {
		resp.URLs = make(map[string]string, len(vs))
		for _, v := range vs {
			resp.URLs[v.Name] = "/media/" + a.ID + "/" + v.Name
		}
	}
	return resp
}
