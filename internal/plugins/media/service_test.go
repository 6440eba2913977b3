package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/keyxmakerx/folio/internal/apperror"
)

// --- Mock Repository ---

// mockMediaRepo implements MediaRepository for testing.
type mockMediaRepo struct {
	createFn          func(ctx context.Context, asset *MediaAsset) error
	findByIDFn        func(ctx context.Context, id string) (*MediaAsset, error)
	listFn            func(ctx context.Context, opts ListOptions) ([]MediaAsset, int, error)
	updateAltTextFn   func(ctx context.Context, id, altText string) error
	markDeletedFn     func(ctx context.Context, id string, at time.Time) (bool, error)
	restoreFn         func(ctx context.Context, id string, cutoff time.Time) (bool, error)
	deleteFn          func(ctx context.Context, id string) error
	purgeFn           func(ctx context.Context, id string, cutoff time.Time, removeFiles func(*MediaAsset) error) (bool, error)
	listPurgeableFn   func(ctx context.Context, cutoff time.Time, after *PurgeCursor, limit int) ([]MediaAsset, error)
	getStorageStatsFn func(ctx context.Context) (*StorageStats, error)
}

func (m *mockMediaRepo) Create(ctx context.Context, asset *MediaAsset) error {
	if m.createFn != nil {
		return m.createFn(ctx, asset)
	}
	return nil
}

func (m *mockMediaRepo) FindByID(ctx context.Context, id string) (*MediaAsset, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("media asset not found")
}

func (m *mockMediaRepo) List(ctx context.Context, opts ListOptions) ([]MediaAsset, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, opts)
	}
	return nil, 0, nil
}

func (m *mockMediaRepo) UpdateAltText(ctx context.Context, id, altText string) error {
	if m.updateAltTextFn != nil {
		return m.updateAltTextFn(ctx, id, altText)
	}
	return nil
}

func (m *mockMediaRepo) MarkDeleted(ctx context.Context, id string, at time.Time) (bool, error) {
	if m.markDeletedFn != nil {
		return m.markDeletedFn(ctx, id, at)
	}
	return true, nil
}

func (m *mockMediaRepo) Restore(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	if m.restoreFn != nil {
		return m.restoreFn(ctx, id, cutoff)
	}
	return true, nil
}

func (m *mockMediaRepo) Purge(ctx context.Context, id string, cutoff time.Time, removeFiles func(*MediaAsset) error) (bool, error) {
	if m.purgeFn != nil {
		return m.purgeFn(ctx, id, cutoff, removeFiles)
	}
	return false, nil
}

func (m *mockMediaRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockMediaRepo) ListPurgeable(ctx context.Context, cutoff time.Time, after *PurgeCursor, limit int) ([]MediaAsset, error) {
	if m.listPurgeableFn != nil {
		return m.listPurgeableFn(ctx, cutoff, after, limit)
	}
	return nil, nil
}

func (m *mockMediaRepo) GetStorageStats(ctx context.Context) (*StorageStats, error) {
	if m.getStorageStatsFn != nil {
		return m.getStorageStatsFn(ctx)
	}
	return &StorageStats{}, nil
}

// --- Test Helpers ---

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo MediaRepository) (*mediaService, *FileStore) {
	t.Helper()
	store := newTestStore(t)
	svc := NewMediaService(repo, store, NewVariantGenerator(store, &fakeEncoder{}, nil), 5<<20, 30).(*mediaService)
	svc.now = func() time.Time { return fixedNow }
	return svc, store
}

func intPtr(i int) *int { return &i }

// --- Upload Tests ---

func TestUpload_RasterGetsVariants(t *testing.T) {
	var saved *MediaAsset
	repo := &mockMediaRepo{
		createFn: func(_ context.Context, a *MediaAsset) error {
			saved = a
			return nil
		},
	}
	svc, store := newTestService(t, repo)

	asset, err := svc.Upload(context.Background(), UploadInput{
		Filename: "Sunset.png",
		MimeType: "image/png",
		AltText:  "  sunset over the bay ",
		Data:     testImage(t, "png", 1000, 500),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved != asset {
		t.Fatal("expected the returned asset to be the one persisted")
	}
	if asset.ID == "" {
		t.Error("expected a generated id")
	}
	if asset.Kind != KindRaster {
		t.Errorf("expected raster kind, got %v", asset.Kind)
	}
	if asset.Width == nil || *asset.Width != 1000 || asset.Height == nil || *asset.Height != 500 {
		t.Errorf("expected 1000x500 dims, got %v x %v", asset.Width, asset.Height)
	}
	if asset.AltText != "sunset over the bay" {
		t.Errorf("expected trimmed alt text, got %q", asset.AltText)
	}
	if asset.Variants.Thumb == nil || asset.Variants.Thumb.Height != 200 {
		t.Errorf("expected 400x200 thumb, got %+v", asset.Variants.Thumb)
	}
	if asset.Variants.Medium == nil || asset.Variants.Large != nil {
		t.Errorf("expected thumb+medium only, got %+v", asset.Variants.All())
	}
	if !asset.CreatedAt.Equal(fixedNow) {
		t.Errorf("expected created_at %v, got %v", fixedNow, asset.CreatedAt)
	}
	for _, key := range asset.Keys() {
		if !store.Exists(key) {
			t.Errorf("expected %s on disk", key)
		}
	}
}

func TestUpload_NonRasterHasNoDimensions(t *testing.T) {
	svc, store := newTestService(t, &mockMediaRepo{})

	for _, in := range []UploadInput{
		{Filename: "logo.svg", MimeType: "image/svg+xml", Data: []byte(testSVG)},
		{Filename: "cv", MimeType: "application/pdf", Data: []byte(testPDF)},
	} {
		asset, err := svc.Upload(context.Background(), in)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", in.Filename, err)
		}
		if asset.Width != nil || asset.Height != nil {
			t.Errorf("%s: expected nil dimensions", in.Filename)
		}
		if !asset.Variants.IsEmpty() {
			t.Errorf("%s: expected no variants", in.Filename)
		}
		if !store.Exists(asset.StorageKey) {
			t.Errorf("%s: original not stored", in.Filename)
		}
	}
}

func TestUpload_PDFWithoutExtensionGetsDefault(t *testing.T) {
	svc, _ := newTestService(t, &mockMediaRepo{})
	asset, err := svc.Upload(context.Background(), UploadInput{
		Filename: "resume", MimeType: "application/pdf", Data: []byte(testPDF),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := asset.StorageKey[len(asset.StorageKey)-11:]; got != "-resume.pdf" {
		t.Errorf("expected key ending -resume.pdf, got %q", asset.StorageKey)
	}
}

func TestUpload_RejectedWritesNothing(t *testing.T) {
	repo := &mockMediaRepo{
		createFn: func(context.Context, *MediaAsset) error {
			t.Fatal("repository must not be called for rejected uploads")
			return nil
		},
	}
	svc, store := newTestService(t, repo)

	_, err := svc.Upload(context.Background(), UploadInput{
		Filename: "evil.exe", MimeType: "application/x-msdownload", Data: []byte("MZ\x90\x00"),
	})
	assertAppErrorType(t, err, "unsupported_media_type")
	assertEmptyDir(t, store.Root())
}

func TestUpload_TooLarge(t *testing.T) {
	svc, _ := newTestService(t, &mockMediaRepo{})
	svc.maxSize = 10
	_, err := svc.Upload(context.Background(), UploadInput{
		Filename: "a.png", MimeType: "image/png", Data: testImage(t, "png", 8, 8),
	})
	assertAppError(t, err, 413)
}

func TestUpload_InsertFailureRemovesFiles(t *testing.T) {
	repo := &mockMediaRepo{
		createFn: func(context.Context, *MediaAsset) error {
			return errors.New("connection reset")
		},
	}
	svc, store := newTestService(t, repo)

	_, err := svc.Upload(context.Background(), UploadInput{
		Filename: "big.png", MimeType: "image/png", Data: testImage(t, "png", 900, 600),
	})
	assertAppError(t, err, 500)
	assertEmptyDir(t, store.Root())
}

func TestUpload_DuplicateKeyIsConflict(t *testing.T) {
	repo := &mockMediaRepo{
		createFn: func(context.Context, *MediaAsset) error {
			return apperror.NewConflict("storage key already exists").WithType("duplicate_storage_key")
		},
	}
	svc, _ := newTestService(t, repo)

	_, err := svc.Upload(context.Background(), UploadInput{
		Filename: "a.pdf", MimeType: "application/pdf", Data: []byte(testPDF),
	})
	assertAppError(t, err, 409)
	assertAppErrorType(t, err, "duplicate_storage_key")
}

func TestUpload_UndecodableRasterStoredWithoutVariants(t *testing.T) {
	svc, _ := newTestService(t, &mockMediaRepo{})
	// Valid GIF header so sniffing passes, but the body is truncated.
	asset, err := svc.Upload(context.Background(), UploadInput{
		Filename: "broken.gif", MimeType: "image/gif", Data: []byte("GIF89a\x10\x00\x10\x00"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asset.Width != nil || !asset.Variants.IsEmpty() {
		t.Error("expected no dimensions or variants for undecodable raster")
	}
}

// --- Soft Delete / Restore Tests ---

func TestSoftDelete_SetsDeletedAt(t *testing.T) {
	var markedAt time.Time
	repo := &mockMediaRepo{
		findByIDFn: func(_ context.Context, id string) (*MediaAsset, error) {
			return &MediaAsset{ID: id, StorageKey: "2025/06/x-a.png"}, nil
		},
		markDeletedFn: func(_ context.Context, _ string, at time.Time) (bool, error) {
			markedAt = at
			return true, nil
		},
	}
	svc, _ := newTestService(t, repo)

	asset, err := svc.SoftDelete(context.Background(), "m-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asset.DeletedAt == nil || !asset.DeletedAt.Equal(fixedNow) || !markedAt.Equal(fixedNow) {
		t.Errorf("expected deleted_at %v, got %v", fixedNow, asset.DeletedAt)
	}
}

func TestSoftDelete_AlreadyDeletedKeepsFirstTimestamp(t *testing.T) {
	first := fixedNow.Add(-72 * time.Hour)
	repo := &mockMediaRepo{
		findByIDFn: func(_ context.Context, id string) (*MediaAsset, error) {
			return &MediaAsset{ID: id, DeletedAt: &first}, nil
		},
		markDeletedFn: func(context.Context, string, time.Time) (bool, error) {
			t.Fatal("MarkDeleted must not be called for an already-deleted asset")
			return false, nil
		},
	}
	svc, _ := newTestService(t, repo)

	asset, err := svc.SoftDelete(context.Background(), "m-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !asset.DeletedAt.Equal(first) {
		t.Errorf("expected deleted_at to stay %v, got %v", first, asset.DeletedAt)
	}
}

func TestSoftDelete_NotFound(t *testing.T) {
	svc, _ := newTestService(t, &mockMediaRepo{})
	_, err := svc.SoftDelete(context.Background(), "missing")
	assertAppError(t, err, 404)
}

func TestRestore_ClearsDeletedAt(t *testing.T) {
	deleted := fixedNow.Add(-time.Hour)
	restored := false
	repo := &mockMediaRepo{
		findByIDFn: func(_ context.Context, id string) (*MediaAsset, error) {
			return &MediaAsset{ID: id, DeletedAt: &deleted}, nil
		},
		restoreFn: func(_ context.Context, _ string, cutoff time.Time) (bool, error) {
			if !cutoff.Equal(fixedNow.AddDate(0, 0, -30)) {
				t.Errorf("expected cutoff at the retention window, got %v", cutoff)
			}
			restored = true
			return true, nil
		},
	}
	svc, _ := newTestService(t, repo)

	asset, err := svc.Restore(context.Background(), "m-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !restored || asset.DeletedAt != nil {
		t.Error("expected asset to be restored")
	}
}

func TestRestore_ActiveIsNoop(t *testing.T) {
	repo := &mockMediaRepo{
		findByIDFn: func(_ context.Context, id string) (*MediaAsset, error) {
			return &MediaAsset{ID: id}, nil
		},
		restoreFn: func(context.Context, string, time.Time) (bool, error) {
			t.Fatal("Restore must not be called for an active asset")
			return false, nil
		},
	}
	svc, _ := newTestService(t, repo)
	if _, err := svc.Restore(context.Background(), "m-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRestore_PastRetentionIsRefused(t *testing.T) {
	deleted := fixedNow.AddDate(0, 0, -31)
	repo := &mockMediaRepo{
		findByIDFn: func(_ context.Context, id string) (*MediaAsset, error) {
			return &MediaAsset{ID: id, DeletedAt: &deleted}, nil
		},
		restoreFn: func(context.Context, string, time.Time) (bool, error) {
			t.Fatal("an asset awaiting purge must not be restored")
			return false, nil
		},
	}
	svc, _ := newTestService(t, repo)

	_, err := svc.Restore(context.Background(), "m-1")
	assertAppError(t, err, 409)
	assertAppErrorType(t, err, "purge_pending")
}

func TestRestore_LostRaceWithSweep(t *testing.T) {
	deleted := fixedNow.AddDate(0, 0, -29)
	calls := 0
	repo := &mockMediaRepo{
		findByIDFn: func(_ context.Context, id string) (*MediaAsset, error) {
			calls++
			if calls > 1 {
				return nil, apperror.NewNotFound("media asset not found")
			}
			return &MediaAsset{ID: id, DeletedAt: &deleted}, nil
		},
		restoreFn: func(context.Context, string, time.Time) (bool, error) {
			return false, nil
		},
	}
	svc, _ := newTestService(t, repo)

	_, err := svc.Restore(context.Background(), "m-1")
	assertAppError(t, err, 404)
}

func TestGetActive_HidesSoftDeleted(t *testing.T) {
	deleted := fixedNow
	repo := &mockMediaRepo{
		findByIDFn: func(_ context.Context, id string) (*MediaAsset, error) {
			return &MediaAsset{ID: id, DeletedAt: &deleted}, nil
		},
	}
	svc, _ := newTestService(t, repo)
	_, err := svc.GetActive(context.Background(), "m-1")
	assertAppError(t, err, 404)
}

// --- Permanent Delete Tests ---

func TestPermanentDelete_RemovesFilesThenRow(t *testing.T) {
	var store *FileStore
	asset := &MediaAsset{
		ID:         "m-1",
		StorageKey: "2025/06/x-a.png",
		Variants: VariantSet{
			Thumb: &Variant{Name: VariantThumb, Path: "2025/06/x-a_thumb.webp", Width: 400, Height: 300},
		},
	}
	repo := &mockMediaRepo{
		findByIDFn: func(context.Context, string) (*MediaAsset, error) { return asset, nil },
		deleteFn: func(context.Context, string) error {
			for _, k := range asset.Keys() {
				if store.Exists(k) {
					t.Errorf("row deleted while %s still on disk", k)
				}
			}
			return nil
		},
	}
	svc, s := newTestService(t, repo)
	store = s
	for _, k := range asset.Keys() {
		if err := store.Write(k, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}

	if err := svc.PermanentDelete(context.Background(), "m-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- Resolve Tests ---

func TestResolve(t *testing.T) {
	asset := &MediaAsset{
		ID: "m-1", StorageKey: "k.jpg", MimeType: "image/jpeg",
		Width: intPtr(1920), Height: intPtr(1080),
		Variants: VariantSet{
			Thumb:  &Variant{Name: VariantThumb, Path: "k_thumb.webp", Width: 400, Height: 225},
			Medium: &Variant{Name: VariantMedium, Path: "k_medium.webp", Width: 800, Height: 450},
			Large:  &Variant{Name: VariantLarge, Path: "k_large.webp", Width: 1200, Height: 675},
		},
	}
	svc, _ := newTestService(t, &mockMediaRepo{})

	tests := []struct {
		width int
		want  string
	}{
		{0, RenditionOriginal},
		{100, VariantThumb},
		{400, VariantThumb},
		{401, VariantMedium},
		{1200, VariantLarge},
		{1600, RenditionOriginal},
	}
	for _, tt := range tests {
		r := svc.Resolve(asset, DisplayContext{Width: tt.width})
		if r.Variant != tt.want {
			t.Errorf("width %d: expected %s, got %s", tt.width, tt.want, r.Variant)
		}
	}

	orig := svc.Resolve(asset, DisplayContext{})
	if orig.Key != "k.jpg" || orig.MimeType != "image/jpeg" || orig.Width != 1920 {
		t.Errorf("unexpected original rendition %+v", orig)
	}
	thumb := svc.Resolve(asset, DisplayContext{Width: 400})
	if thumb.MimeType != "image/webp" || thumb.Key != "k_thumb.webp" {
		t.Errorf("unexpected thumb rendition %+v", thumb)
	}
}

func TestResolve_NonRasterFallsBackToOriginal(t *testing.T) {
	svc, _ := newTestService(t, &mockMediaRepo{})
	r := svc.Resolve(&MediaAsset{StorageKey: "doc.pdf", MimeType: "application/pdf"}, DisplayContext{Width: 400})
	if r.Variant != RenditionOriginal || r.Width != 0 {
		t.Errorf("expected original with unknown dims, got %+v", r)
	}
}

func TestParseDisplayContext(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"thumb", 400, true},
		{"medium", 800, true},
		{"large", 1200, true},
		{"original", 0, true},
		{"640", 640, true},
		{"0", 0, false},
		{"-1", 0, false},
		{"huge", 0, false},
	}
	for _, tt := range tests {
		dc, err := ParseDisplayContext(tt.in)
		if tt.ok && (err != nil || dc.Width != tt.want) {
			t.Errorf("%q: expected width %d, got %d (err %v)", tt.in, tt.want, dc.Width, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("%q: expected error", tt.in)
		}
	}
}
