package refimage

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOptimizeURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "cloudinary upload URL gets transform",
			in:   "https://res.cloudinary.com/demo/image/upload/v123/ava/beach.jpg",
			want: "https://res.cloudinary.com/demo/image/upload/w_1024,q_auto,f_auto/v123/ava/beach.jpg",
		},
		{
			name: "already transformed passes through",
			in:   "https://res.cloudinary.com/demo/image/upload/w_512/v123/ava.jpg",
			want: "https://res.cloudinary.com/demo/image/upload/w_512/v123/ava.jpg",
		},
		{
			name: "other hosts pass through",
			in:   "https://example.com/photos/ava.jpg",
			want: "https://example.com/photos/ava.jpg",
		},
		{
			name: "cloudinary URL without upload segment passes through",
			in:   "https://res.cloudinary.com/demo/raw/ava.jpg",
			want: "https://res.cloudinary.com/demo/raw/ava.jpg",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := OptimizeURL(tc.in); got != tc.want {
				t.Errorf("OptimizeURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestPickOne(t *testing.T) {
	empty := New(nil, nil)
	if _, ok := empty.PickOne(); ok {
		t.Error("PickOne on empty pool returned ok")
	}

	single := New([]string{"https://res.cloudinary.com/demo/image/upload/v1/a.jpg"}, nil)
	got, ok := single.PickOne()
	if !ok {
		t.Fatal("PickOne on non-empty pool returned !ok")
	}
	want := "https://res.cloudinary.com/demo/image/upload/w_1024,q_auto,f_auto/v1/a.jpg"
	if got != want {
		t.Errorf("PickOne = %q, want %q", got, want)
	}
}

func TestFetch(t *testing.T) {
	payload := []byte{0xff, 0xd8, 0xff, 0xe0}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(payload)
	}))
	defer srv.Close()

	pool := New(nil, srv.Client())
	mimeType, data, err := pool.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if mimeType != "image/jpeg" {
		t.Errorf("mime = %q, want %q", mimeType, "image/jpeg")
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("data = %v, want %v", data, payload)
	}
}

func TestFetchRejectsNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	pool := New(nil, srv.Client())
	if _, _, err := pool.Fetch(context.Background(), srv.URL); err == nil {
		t.Error("Fetch of 404 succeeded, want error")
	}
}

func TestFetchDetectsMissingContentType(t *testing.T) {
	payload := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(payload)
	}))
	defer srv.Close()

	pool := New(nil, srv.Client())
	mimeType, _, err := pool.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if mimeType != "image/png" {
		t.Errorf("sniffed mime = %q, want %q", mimeType, "image/png")
	}
}
