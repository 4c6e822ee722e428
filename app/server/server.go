// Package server exposes the data-access layer to the presentation layer as
// a small JSON API. It holds no state of its own; every request goes
// straight to the repository or the listing engine.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/weehan299/poetica/app/config"
	"github.com/weehan299/poetica/app/database"
	"github.com/weehan299/poetica/app/listing"
	"github.com/weehan299/poetica/app/repository"
)

type httpResponse struct {
	status       int
	Success      bool            `json:"success"`
	Error        string          `json:"error,omitempty"`
	Data         any             `json:"data,omitempty"`
	Pagination   *paginationInfo `json:"pagination,omitempty"`
	ResponseTime float64         `json:"responseTime"`
}

type paginationInfo struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int   `json:"total"`
	Pages    []int `json:"pages"`
}

const listPageSize = 20

func Start(repo *repository.Repository, engine *listing.Engine, db database.Database, config *config.Config) {

	http.HandleFunc("GET /api/search", func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()

		q := req.URL.Query().Get("q")
		if q == "" {
			write(w, start, &httpResponse{status: 400, Error: "missing query"})
			return
		}

		results, err := repo.Search(req.Context(), q)
		if err != nil {
			if errors.Is(err, repository.ErrSuperseded) {
				write(w, start, &httpResponse{status: 409, Error: "superseded by a newer query"})
				return
			}
			slogctx.Error(req.Context(), "search failed", "query", q, "error", err)
			write(w, start, &httpResponse{status: 500, Error: "internal server error"})
			return
		}

		write(w, start, &httpResponse{status: 200, Success: true, Data: results})
	})

	http.HandleFunc("GET /api/poems/daily", func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()

		poem, err := repo.PoemOfTheDay(req.Context())
		if err != nil {
			slogctx.Error(req.Context(), "daily poem failed", "error", err)
			write(w, start, &httpResponse{status: 500, Error: "internal server error"})
			return
		}
		if poem == nil {
			write(w, start, &httpResponse{status: 404, Error: "no poems available"})
			return
		}

		write(w, start, &httpResponse{status: 200, Success: true, Data: poem})
	})

	http.HandleFunc("GET /api/poems/{id}", func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()

		poem, err := repo.GetPoem(req.Context(), req.PathValue("id"))
		if err != nil {
			slogctx.Error(req.Context(), "poem lookup failed", "id", req.PathValue("id"), "error", err)
			write(w, start, &httpResponse{status: 500, Error: "internal server error"})
			return
		}
		if poem == nil {
			write(w, start, &httpResponse{status: 404, Error: "poem not found"})
			return
		}

		write(w, start, &httpResponse{status: 200, Success: true, Data: poem})
	})

	http.HandleFunc("GET /api/poems", func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ctx := req.Context()

		if author := req.URL.Query().Get("author"); author != "" {
			meta, err := engine.Local(ctx, author)
			if err != nil {
				slogctx.Error(ctx, "author listing failed", "author", author, "error", err)
				write(w, start, &httpResponse{status: 500, Error: "internal server error"})
				return
			}
			write(w, start, &httpResponse{status: 200, Success: true, Data: meta})
			return
		}

		page := pageParam(req)
		meta, err := db.GetPoemPage(ctx, listPageSize, (page-1)*listPageSize)
		if err != nil {
			slogctx.Error(ctx, "poem listing failed", "page", page, "error", err)
			write(w, start, &httpResponse{status: 500, Error: "internal server error"})
			return
		}

		total, err := db.CountPoems(ctx)
		if err != nil {
			write(w, start, &httpResponse{status: 500, Error: "internal server error"})
			return
		}

		pageCount := int(math.Ceil(float64(total) / float64(listPageSize)))
		if pageCount < 1 {
			pageCount = 1
		}

		write(w, start, &httpResponse{
			status: 200, Success: true, Data: meta,
			Pagination: &paginationInfo{
				Page:     page,
				PageSize: listPageSize,
				Total:    total,
				Pages:    pageWindow(page, pageCount),
			},
		})
	})

	http.HandleFunc("POST /api/poems/load", func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()

		author := req.URL.Query().Get("author")
		if author == "" {
			write(w, start, &httpResponse{status: 400, Error: "missing author"})
			return
		}

		var loadType listing.LoadType
		switch req.URL.Query().Get("type") {
		case "refresh", "":
			loadType = listing.Refresh
		case "append":
			loadType = listing.Append
		case "prepend":
			loadType = listing.Prepend
		default:
			write(w, start, &httpResponse{status: 400, Error: "unknown load type"})
			return
		}

		err := engine.Load(req.Context(), author, loadType)
		if errors.Is(err, listing.ErrNoMorePages) {
			write(w, start, &httpResponse{status: 200, Success: true, Data: map[string]bool{"endOfPagination": true}})
			return
		}
		if err != nil {
			// Retryable: the UI is expected to offer a retry action.
			slogctx.Warn(req.Context(), "listing load failed", "author", author, "error", err)
			write(w, start, &httpResponse{status: 502, Error: "load failed, retry"})
			return
		}

		write(w, start, &httpResponse{status: 200, Success: true})
	})

	http.HandleFunc("POST /api/poems", func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()

		var body struct {
			Title   string `json:"title"`
			Author  string `json:"author"`
			Content string `json:"content"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Title == "" || body.Content == "" {
			write(w, start, &httpResponse{status: 400, Error: "bad request"})
			return
		}

		poem, err := repo.AddUserPoem(req.Context(), body.Title, body.Author, body.Content)
		if err != nil {
			slogctx.Error(req.Context(), "adding poem failed", "error", err)
			write(w, start, &httpResponse{status: 500, Error: "internal server error"})
			return
		}

		write(w, start, &httpResponse{status: 201, Success: true, Data: poem})
	})

	http.HandleFunc("DELETE /api/poems/{id}", func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()

		if err := repo.DeletePoem(req.Context(), req.PathValue("id")); err != nil {
			slogctx.Error(req.Context(), "deleting poem failed", "id", req.PathValue("id"), "error", err)
			write(w, start, &httpResponse{status: 500, Error: "internal server error"})
			return
		}

		write(w, start, &httpResponse{status: 200, Success: true})
	})

	http.HandleFunc("GET /api/authors", func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()

		page := pageParam(req)
		authors, err := db.ListAuthors(req.Context(), listPageSize, (page-1)*listPageSize)
		if err != nil {
			slogctx.Error(req.Context(), "author listing failed", "error", err)
			write(w, start, &httpResponse{status: 500, Error: "internal server error"})
			return
		}

		write(w, start, &httpResponse{status: 200, Success: true, Data: authors})
	})

	addr := fmt.Sprintf("%v:%v", config.HTTP.Listen, config.HTTP.Port)
	fmt.Printf("Listening on http://%v\n", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}

func pageParam(req *http.Request) int {
	page, err := strconv.Atoi(req.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func write(w http.ResponseWriter, start time.Time, response *httpResponse) {
	response.ResponseTime = float64(time.Since(start).Microseconds()) / 1e6

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(response.status)

	str, err := json.Marshal(response)
	if err != nil {
		w.Write([]byte(`{"success":false,"error":"Failed to marshal struct into JSON"}`))
	} else {
		w.Write(str)
	}
}
