package domain

// Place is a geocoding candidate returned by the local search API.
type Place struct {
	Title       string   `json:"title"`
	Link        string   `json:"link,omitempty"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
	Telephone   string   `json:"telephone,omitempty"`
	Address     string   `json:"address"`
	RoadAddress string   `json:"roadAddress,omitempty"`
	Location    GeoPoint `json:"location"`
	Distance    *float64 `json:"distance,omitempty"` // computed field, meters from the viewport center
}

// SearchResult is one answered search. Generation is the request token the
// answer belongs to; Stale is set when a newer search was issued before this
// one came back.
type SearchResult struct {
	Generation uint64  `json:"generation"`
	Query      string  `json:"query"`
	Stale      bool    `json:"stale"`
	Places     []Place `json:"results"`
}
