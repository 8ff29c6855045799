package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
)

const (
	MaxRating       = 5
	MaxReviewLength = 500

	// CategoryOther is the catch-all bucket. Custom categories are stored as
	// "기타 > <custom>".
	CategoryOther = "기타"
	otherPrefix   = CategoryOther + " > "
)

// KnownCategories lists the fixed categories in display order. CategoryOther
// is always last.
var KnownCategories = []string{"맛집", "카페", "관광지", "쇼핑", "숙소", CategoryOther}

// SavedLocation is a user-annotated place. Field names follow the browser
// client's persisted format.
type SavedLocation struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Address     string     `json:"address"`
	Coordinates GeoPoint   `json:"coordinates"`
	Category    string     `json:"category"`
	Rating      int        `json:"rating"`
	Review      string     `json:"review"`
	Photos      []Photo    `json:"photos,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// Candidate is the input of a save action, usually built from a search result.
type Candidate struct {
	Name           string   `json:"name"`
	Address        string   `json:"address"`
	RoadAddress    string   `json:"roadAddress,omitempty"`
	Coordinates    GeoPoint `json:"coordinates"`
	Category       string   `json:"category"`
	CustomCategory string   `json:"customCategory,omitempty"`
	Rating         int      `json:"rating"`
	Review         string   `json:"review"`
	Photos         []Photo  `json:"photos,omitempty"`
}

// PreferredAddress returns the road address when present.
func (c Candidate) PreferredAddress() string {
	if strings.TrimSpace(c.RoadAddress) != "" {
		return c.RoadAddress
	}
	return c.Address
}

// ComposeCategory turns the selected category and the optional custom text
// into the stored category value.
func ComposeCategory(selected, custom string) (string, error) {
	selected = strings.TrimSpace(selected)
	custom = strings.TrimSpace(custom)

	switch {
	case selected == CategoryOther && custom == "":
		return "", fmt.Errorf("%w: custom category must not be empty", ErrValidation)
	case selected == CategoryOther || (selected == "" && custom != ""):
		return otherPrefix + custom, nil
	case selected == "":
		return "", fmt.Errorf("%w: category is required", ErrValidation)
	case IsKnownCategory(selected) || strings.HasPrefix(selected, otherPrefix):
		return selected, nil
	default:
		return otherPrefix + selected, nil
	}
}

// IsKnownCategory reports whether c is one of KnownCategories.
func IsKnownCategory(c string) bool {
	return lo.Contains(KnownCategories, c)
}

// BaseCategory maps a stored category onto its display bucket.
func BaseCategory(c string) string {
	if IsKnownCategory(c) {
		return c
	}
	return CategoryOther
}

// ValidateRating checks r is within [0, MaxRating]; 0 means unrated.
func ValidateRating(r int) error {
	if r < 0 || r > MaxRating {
		return fmt.Errorf("%w: rating must be between 0 and %d, got %d", ErrValidation, MaxRating, r)
	}
	return nil
}

// ValidateReview checks the review does not exceed MaxReviewLength characters.
func ValidateReview(review string) error {
	if n := utf8.RuneCountInString(review); n > MaxReviewLength {
		return fmt.Errorf("%w: review must be at most %d characters, got %d", ErrValidation, MaxReviewLength, n)
	}
	return nil
}

// Validate checks the invariants every stored location must hold.
func (l SavedLocation) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("%w: id is required", ErrValidation)
	}
	if strings.TrimSpace(l.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	if err := ValidateRating(l.Rating); err != nil {
		return err
	}
	if err := ValidateReview(l.Review); err != nil {
		return err
	}
	if len(l.Photos) > MaxPhotos {
		return fmt.Errorf("%w: at most %d photos, got %d", ErrValidation, MaxPhotos, len(l.Photos))
	}
	return nil
}

// CategoryGroup is one display bucket of saved locations.
type CategoryGroup struct {
	Category  string          `json:"category"`
	Locations []SavedLocation `json:"locations"`
}

// GroupByCategory partitions locs into display buckets. Buckets follow the
// KnownCategories order; anything unknown folds into CategoryOther. Entries
// are sorted by name. Empty buckets are omitted.
func GroupByCategory(locs []SavedLocation) []CategoryGroup {
	buckets := lo.GroupBy(locs, func(l SavedLocation) string {
		return BaseCategory(l.Category)
	})

	groups := make([]CategoryGroup, 0, len(buckets))
	for _, c := range KnownCategories {
		entries, ok := buckets[c]
		if !ok {
			continue
		}
		sorted := slices.Clone(entries)
		slices.SortStableFunc(sorted, func(a, b SavedLocation) int {
			return strings.Compare(a.Name, b.Name)
		})
		groups = append(groups, CategoryGroup{Category: c, Locations: sorted})
	}
	return groups
}
