package naver

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/samirrijal/placemark/internal/core/domain"
)

const sampleResponse = `{
  "lastBuildDate": "Wed, 01 May 2024 09:30:00 +0900",
  "total": 2, "start": 1, "display": 2,
  "items": [
    {"title": "<b>스타벅스</b> 광화문점", "link": "https://www.starbucks.co.kr",
     "category": "카페,디저트>카페", "description": "", "telephone": "",
     "address": "서울특별시 종로구 세종로 149", "roadAddress": "서울특별시 종로구 세종대로 172",
     "mapx": "1269768339", "mapy": "375714220"},
    {"title": "교보문고 &amp; 핫트랙스", "link": "", "category": "쇼핑,유통>서점",
     "description": "", "telephone": "1544-1900",
     "address": "서울특별시 종로구 종로1가 1", "roadAddress": "",
     "mapx": "126.9780", "mapy": "37.5710"}
  ]
}`

func newTestClient(url string, retries int) *Client {
	return NewClient(Config{BaseURL: url, ClientID: "id", ClientSecret: "secret", Retries: retries})
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/search/local.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("query") != "광화문" || q.Get("display") != "5" || q.Get("start") != "1" || q.Get("sort") != "random" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if r.Header.Get("X-Naver-Client-Id") != "id" || r.Header.Get("X-Naver-Client-Secret") != "secret" {
			t.Errorf("missing credential headers")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	places, err := newTestClient(srv.URL, 1).Search(context.Background(), "광화문", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(places) != 2 {
		t.Fatalf("expected 2 places, got %d", len(places))
	}

	first := places[0]
	if first.Title != "스타벅스 광화문점" {
		t.Errorf("expected markup stripped, got %q", first.Title)
	}
	if math.Abs(first.Location.Lat-37.571422) > 1e-6 || math.Abs(first.Location.Lng-126.9768339) > 1e-6 {
		t.Errorf("unexpected scaled coordinates %+v", first.Location)
	}
	if places[1].Title != "교보문고 & 핫트랙스" {
		t.Errorf("expected entities decoded, got %q", places[1].Title)
	}
	if places[1].Location.Lat != 37.5710 || places[1].Location.Lng != 126.9780 {
		t.Errorf("unexpected decimal coordinates %+v", places[1].Location)
	}
}

func TestSearch_MissingCredentials(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if _, err := c.Search(context.Background(), "광화문", 5); !errors.Is(err, domain.ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no request, got %d", calls.Load())
	}
}

func TestSearch_RetriesServerErrorOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	places, err := newTestClient(srv.URL, 1).Search(context.Background(), "광화문", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(places) != 2 {
		t.Errorf("expected 2 places, got %d", len(places))
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestSearch_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 1).Search(context.Background(), "광화문", 5)
	if !errors.Is(err, domain.ErrSearchUpstream) {
		t.Fatalf("expected ErrSearchUpstream, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestSearch_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errorMessage":"Authentication failed","errorCode":"024"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).Search(context.Background(), "광화문", 5)
	if !errors.Is(err, domain.ErrSearchUpstream) {
		t.Fatalf("expected ErrSearchUpstream, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestSearch_SkipsBadCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[
			{"title":"ok","mapx":"1269780000","mapy":"375665000"},
			{"title":"bad","mapx":"","mapy":"x"}
		]}`))
	}))
	defer srv.Close()

	places, err := newTestClient(srv.URL, 0).Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(places) != 1 || places[0].Title != "ok" {
		t.Errorf("expected only the valid item, got %+v", places)
	}
}

func TestParseCoord(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"1269780000", 126.978, false},
		{"375665000", 37.5665, false},
		{"126.978", 126.978, false},
		{" 37.5 ", 37.5, false},
		{"", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := parseCoord(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", tt.in, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%q: expected %v, got %v", tt.in, tt.want, got)
		}
	}
}
