package domain

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MaxPhotos    = 10
	MaxPhotoSize = 5 * 1024 * 1024
)

var (
	ErrPhotoTooLarge  = errors.New("photo exceeds 5 MB")
	ErrPhotoNotImage  = errors.New("photo is not an image")
	ErrPhotoMalformed = errors.New("photo is not a base64 data URL")
	ErrTooManyPhotos  = errors.New("photo limit reached")
)

// Photo is an image encoded as a data URL ("data:image/png;base64,...").
type Photo string

// Decode returns the raw image bytes.
func (p Photo) Decode() ([]byte, error) {
	s := string(p)
	if !strings.HasPrefix(s, "data:") {
		return nil, ErrPhotoMalformed
	}
	header, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, ErrPhotoMalformed
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPhotoMalformed, err)
	}
	return raw, nil
}

// Check verifies the decoded size and the sniffed mime type.
func (p Photo) Check() error {
	raw, err := p.Decode()
	if err != nil {
		return err
	}
	if len(raw) > MaxPhotoSize {
		return ErrPhotoTooLarge
	}
	if !strings.HasPrefix(mimetype.Detect(raw).String(), "image/") {
		return ErrPhotoNotImage
	}
	return nil
}

// RejectedPhoto reports a photo that was left out of a save.
type RejectedPhoto struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// FilterPhotos keeps the photos that pass Check, in order, up to MaxPhotos.
// Every photo left out is reported with its position in the input.
func FilterPhotos(photos []Photo) ([]Photo, []RejectedPhoto) {
	var (
		kept     []Photo
		rejected []RejectedPhoto
	)
	for i, p := range photos {
		if len(kept) >= MaxPhotos {
			rejected = append(rejected, RejectedPhoto{Index: i, Reason: ErrTooManyPhotos.Error()})
			continue
		}
		if err := p.Check(); err != nil {
			rejected = append(rejected, RejectedPhoto{Index: i, Reason: err.Error()})
			continue
		}
		kept = append(kept, p)
	}
	return kept, rejected
}
