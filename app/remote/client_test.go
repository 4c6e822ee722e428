package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(server.URL, 5*time.Second, 600)
	if err != nil {
		t.Fatalf("client creation failed: %v", err)
	}
	return client
}

func TestSearch(t *testing.T) {
	var query string
	var poemLimit string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %v", r.URL.Path)
		}
		query = r.URL.Query().Get("q")
		poemLimit = r.URL.Query().Get("poem_limit")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"poems": [{"id": "p1", "title": "The Tyger", "author": "William Blake", "content": "Tyger Tyger, burning bright,"}],
			"authors": [{"name": "William Blake", "poem_count": 40}],
			"total": 1
		}`))
	})

	got, err := client.Search(context.Background(), "tyger", 50)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if query != "tyger" || poemLimit != "50" {
		t.Fatalf("unexpected query parameters: q=%q poem_limit=%q", query, poemLimit)
	}

	want := &SearchResponse{
		Poems:   []Poem{{ID: "p1", Title: "The Tyger", Author: "William Blake", Content: "Tyger Tyger, burning bright,"}},
		Authors: []AuthorHit{{Name: "William Blake", PoemCount: 40}},
		Total:   1,
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("wanted %+v, got %+v", want, got)
	}
}

func TestGetPoemEscapesID(t *testing.T) {
	var path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.EscapedPath()
		w.Write([]byte(`{"id": "a/b", "title": "x", "author": "y", "content": "z"}`))
	})

	got, err := client.GetPoem(context.Background(), "a/b")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if path != "/items/a%2Fb" {
		t.Fatalf("expected an escaped id in the path, got %v", path)
	}
	if got.ID != "a/b" {
		t.Fatalf("unexpected poem: %+v", got)
	}
}

func TestGetPageParameters(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("size") != "20" || q.Get("partition") != "Emily Dickinson" ||
			q.Get("sort") != "title" || q.Get("order") != "asc" {
			t.Errorf("unexpected query parameters: %v", q)
		}
		w.Write([]byte(`{"poems": [], "page": 2, "size": 20, "total": 45, "has_next": true, "has_prev": true}`))
	})

	got, err := client.GetPage(context.Background(), "Emily Dickinson", 2, 20, "title", "asc")
	if err != nil {
		t.Fatalf("page fetch failed: %v", err)
	}
	if !got.HasNext || !got.HasPrev || got.Total != 45 {
		t.Fatalf("unexpected page response: %+v", got)
	}
}

func TestErrorStatusIsUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Search(context.Background(), "x", 50)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for a 500, got %v", err)
	}
}

func TestMalformedBodyIsUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"poems": [`))
	})

	_, err := client.Search(context.Background(), "x", 50)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for a truncated body, got %v", err)
	}
}

func TestUnreachableHostIsUnavailable(t *testing.T) {
	client, err := New("http://127.0.0.1:1", 500*time.Millisecond, 600)
	if err != nil {
		t.Fatalf("client creation failed: %v", err)
	}

	_, err = client.GetPoem(context.Background(), "p1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for an unreachable host, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	healthy := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %v", r.URL.Path)
		}
		w.Write([]byte(`{}`))
	})
	if !healthy.Health(context.Background()) {
		t.Fatalf("expected a healthy report")
	}

	unhealthy := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	if unhealthy.Health(context.Background()) {
		t.Fatalf("expected an unhealthy report")
	}
}
