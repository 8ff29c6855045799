package domain_test

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/samirrijal/placemark/internal/core/domain"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func photoOfSize(n int) domain.Photo {
	raw := make([]byte, n)
	copy(raw, pngHeader)
	return domain.Photo("data:image/png;base64," + base64.StdEncoding.EncodeToString(raw))
}

func TestPhotoCheck(t *testing.T) {
	if err := photoOfSize(1024).Check(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := photoOfSize(domain.MaxPhotoSize).Check(); err != nil {
		t.Errorf("photo at the limit: unexpected error %v", err)
	}
	if err := photoOfSize(6 * 1024 * 1024).Check(); !errors.Is(err, domain.ErrPhotoTooLarge) {
		t.Errorf("expected ErrPhotoTooLarge, got %v", err)
	}

	text := domain.Photo("data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hello world")))
	if err := text.Check(); !errors.Is(err, domain.ErrPhotoNotImage) {
		t.Errorf("expected ErrPhotoNotImage, got %v", err)
	}

	for _, p := range []domain.Photo{"not a data url", "data:image/png,raw", "data:image/png;base64,%%%"} {
		if err := p.Check(); !errors.Is(err, domain.ErrPhotoMalformed) {
			t.Errorf("%q: expected ErrPhotoMalformed, got %v", p, err)
		}
	}
}

func TestFilterPhotos(t *testing.T) {
	small := photoOfSize(512)
	big := photoOfSize(6 * 1024 * 1024)

	photos := []domain.Photo{small, big}
	for i := 0; i < domain.MaxPhotos; i++ {
		photos = append(photos, small)
	}

	kept, rejected := domain.FilterPhotos(photos)
	if len(kept) != domain.MaxPhotos {
		t.Errorf("expected %d kept, got %d", domain.MaxPhotos, len(kept))
	}
	if len(rejected) != 2 {
		t.Fatalf("expected 2 rejected, got %d: %+v", len(rejected), rejected)
	}
	if rejected[0].Index != 1 || rejected[0].Reason != domain.ErrPhotoTooLarge.Error() {
		t.Errorf("unexpected first rejection: %+v", rejected[0])
	}
	if rejected[1].Index != len(photos)-1 || rejected[1].Reason != domain.ErrTooManyPhotos.Error() {
		t.Errorf("unexpected second rejection: %+v", rejected[1])
	}
}

func TestPositionReport(t *testing.T) {
	p := domain.GeoPoint{Lat: 37.4979, Lng: 127.0276}

	got, err := domain.PositionReport{Point: &p}.CurrentPosition(context.Background())
	if err != nil || got != p {
		t.Errorf("expected %+v, got %+v (%v)", p, got, err)
	}

	cases := map[int]error{
		domain.CodePermissionDenied:    domain.ErrPermissionDenied,
		domain.CodePositionUnavailable: domain.ErrPositionUnavailable,
		domain.CodeTimeout:             domain.ErrTimeout,
	}
	for code, want := range cases {
		if _, err := (domain.PositionReport{Code: code}).CurrentPosition(context.Background()); !errors.Is(err, want) {
			t.Errorf("code %d: expected %v, got %v", code, want, err)
		}
	}
	if _, err := (domain.PositionReport{}).CurrentPosition(context.Background()); !errors.Is(err, domain.ErrPositionUnavailable) {
		t.Errorf("empty report: expected ErrPositionUnavailable, got %v", err)
	}
}
