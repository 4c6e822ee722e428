package database

import "context"

type Database interface {
	// Create necessary tables
	Setup(ctx context.Context) error

	// Look up a single poem. Returns (nil, nil) when the id is unknown.
	GetPoem(ctx context.Context, id string) (*Poem, error)
	// List poem metadata ordered by title, for scrolling list views.
	GetPoemPage(ctx context.Context, limit int, offset int) ([]PoemMeta, error)

	// Search poem metadata by title, author, first line or content.
	// Prefix matches on the title sort above substring matches.
	SearchMeta(ctx context.Context, query string, limit int, offset int) ([]PoemMeta, error)
	// Full-content search, capped at MaxSearchResults rows.
	SearchPoems(ctx context.Context, query string) ([]Poem, error)
	// Aggregate authors whose name matches the query, with their poem counts.
	SearchAuthors(ctx context.Context, query string) ([]AuthorSummary, error)

	GetPoemsByAuthor(ctx context.Context, author string) ([]Poem, error)
	GetMetaByAuthor(ctx context.Context, author string) ([]PoemMeta, error)
	ListAuthors(ctx context.Context, limit int, offset int) ([]AuthorSummary, error)

	// The id of the poem at the given position in a stable ordering.
	// Used for the deterministic daily selection.
	PoemIDAt(ctx context.Context, index int) (string, error)

	CountPoems(ctx context.Context) (int, error)
	CountByAuthor(ctx context.Context, author string) (int, error)
	HasAuthor(ctx context.Context, author string) (bool, error)

	// Insert or replace poems by id. Remote content replaces bundled rows
	// wholesale, so a fully fetched poem keeps REMOTE provenance afterwards.
	SavePoems(ctx context.Context, poems []Poem) error
	DeletePoem(ctx context.Context, id string) error

	// Per-author remote pagination bookkeeping.
	GetCursor(ctx context.Context, author string) (*PageCursor, error)
	SetCursor(ctx context.Context, cursor PageCursor) error
	ClearCursor(ctx context.Context, author string) error

	// Key-value settings storage. GetSetting returns "" for unknown keys.
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key string, value string) error
}

// MaxSearchResults bounds full-content search to keep memory use predictable
// when a short query matches a large part of the corpus.
const MaxSearchResults = 100

type SourceType string

const (
	// Poems shipped with the app in the pre-populated database.
	SourceBundled SourceType = "BUNDLED"
	// Poems fetched from the remote poetry API.
	SourceRemote SourceType = "REMOTE"
	// Poems entered by the user.
	SourceUser SourceType = "USER_ADDED"
)

type Poem struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Author     string     `json:"author"`
	Content    string     `json:"content"`
	FirstLine  string     `json:"firstLine"`
	SourceType SourceType `json:"sourceType"`
}

// PoemMeta is the list-view projection of a Poem: everything except the
// content, plus a word count, so large text fields stay out of memory.
type PoemMeta struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Author     string     `json:"author"`
	FirstLine  string     `json:"firstLine"`
	SourceType SourceType `json:"sourceType"`
	WordCount  int        `json:"wordCount"`
}

type AuthorSummary struct {
	Name      string `json:"name"`
	PoemCount int    `json:"poemCount"`
}

// PageCursor records the forward/backward remote page numbers for one
// author's listing. A nil page means there is nothing further in that
// direction.
type PageCursor struct {
	Author   string
	PrevPage *int
	NextPage *int
}
