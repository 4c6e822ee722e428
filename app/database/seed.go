package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// The poems_bundle.json format that the pre-populated database is built from.
type bundle struct {
	Collections []struct {
		Name  string `json:"name"`
		Poems []struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			Author    string `json:"author"`
			Text      string `json:"text"`
			FirstLine string `json:"first_line"`
		} `json:"poems"`
	} `json:"collections"`
}

// SeedFromJSON loads a poem bundle into the store with BUNDLED provenance.
// Intended for first-run initialization or for rebuilding a corrupted
// database from the shipped asset. Returns the number of poems loaded.
func SeedFromJSON(ctx context.Context, db Database, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading poem bundle: %w", err)
	}

	parsed := &bundle{}
	if err := json.Unmarshal(data, parsed); err != nil {
		return 0, fmt.Errorf("parsing poem bundle: %w", err)
	}

	var poems []Poem
	for _, collection := range parsed.Collections {
		for _, p := range collection.Poems {
			if p.ID == "" {
				continue
			}
			firstLine := p.FirstLine
			if firstLine == "" {
				firstLine = FirstLine(p.Text)
			}
			poems = append(poems, Poem{
				ID:         p.ID,
				Title:      p.Title,
				Author:     p.Author,
				Content:    p.Text,
				FirstLine:  firstLine,
				SourceType: SourceBundled,
			})
		}
	}

	if err := db.SavePoems(ctx, poems); err != nil {
		return 0, err
	}

	return len(poems), nil
}

// FirstLine derives the first non-empty line of a poem's content.
func FirstLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
