package remote

// Wire shapes for the poetry API. Only the fields the app consumes are
// declared; anything else in the body is ignored.

type Poem struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Author  string `json:"author"`
	Content string `json:"content"`
}

type AuthorHit struct {
	Name      string `json:"name"`
	PoemCount int    `json:"poem_count"`
}

type SearchResponse struct {
	Poems   []Poem      `json:"poems"`
	Authors []AuthorHit `json:"authors"`
	Total   int         `json:"total"`
}

type PageResponse struct {
	Poems   []Poem `json:"poems"`
	Page    int    `json:"page"`
	Size    int    `json:"size"`
	Total   int    `json:"total"`
	HasNext bool   `json:"has_next"`
	HasPrev bool   `json:"has_prev"`
}
