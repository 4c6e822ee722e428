package database

import (
	"context"
	"fmt"
	"path"
	"reflect"
	"strings"
	"testing"
)

func createDB(t *testing.T) *SQLiteDatabase {
	db, err := SQLiteFromFile(path.Join(t.TempDir(), "temp.db"))

	if err != nil {
		t.Fatalf("database creation failed: %v", err)
	}

	if err := db.Setup(context.Background()); err != nil {
		t.Fatalf("database setup failed: %v", err)
	}

	return db
}

func testPoem(id string, title string, author string, content string) Poem {
	return Poem{
		ID:         id,
		Title:      title,
		Author:     author,
		Content:    content,
		FirstLine:  FirstLine(content),
		SourceType: SourceBundled,
	}
}

func TestSaveAndGetPoem(t *testing.T) {
	db := createDB(t)
	ctx := context.Background()

	want := testPoem("p1", "The Tyger", "William Blake", "Tyger Tyger, burning bright,\nIn the forests of the night.")
	if err := db.SavePoems(ctx, []Poem{want}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := db.GetPoem(ctx, "p1")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got == nil || !reflect.DeepEqual(want, *got) {
		t.Fatalf("wanted %+v, got %+v", want, got)
	}
}

func TestGetPoemMissingReturnsNil(t *testing.T) {
	db := createDB(t)

	got, err := db.GetPoem(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for an unknown id, got %+v", got)
	}
}

func TestSavePoemsReplacesOnConflict(t *testing.T) {
	db := createDB(t)
	ctx := context.Background()

	preview := testPoem("p1", "Fragment", "Frost", "Two roads diverged...")
	if err := db.SavePoems(ctx, []Poem{preview}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	full := testPoem("p1", "The Road Not Taken", "Robert Frost", "Two roads diverged in a yellow wood.")
	full.SourceType = SourceRemote
	if err := db.SavePoems(ctx, []Poem{full}); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	got, err := db.GetPoem(ctx, "p1")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got.SourceType != SourceRemote || got.Title != "The Road Not Taken" {
		t.Fatalf("expected the remote row to replace the preview, got %+v", got)
	}

	count, err := db.CountPoems(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one row after replace, got %v", count)
	}
}

func TestSearchMetaRanksPrefixAboveSubstring(t *testing.T) {
	db := createDB(t)
	ctx := context.Background()

	err := db.SavePoems(ctx, []Poem{
		testPoem("p1", "My Raven Story", "Anon", "verse one."),
		testPoem("p2", "Raven Song", "Anon", "verse two."),
		testPoem("p3", "Quiet Field", "Raven Smith", "verse three."),
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	results, err := db.SearchMeta(ctx, "Raven", 10, 0)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %v", len(results))
	}
	if results[0].ID != "p2" {
		t.Fatalf("expected the title-prefix match first, got %v", results[0].ID)
	}
	if results[1].ID != "p3" {
		t.Fatalf("expected the author-prefix match second, got %v", results[1].ID)
	}
	if results[2].ID != "p1" {
		t.Fatalf("expected the substring match last, got %v", results[2].ID)
	}
}

func TestSearchPoemsIsCapped(t *testing.T) {
	db := createDB(t)
	ctx := context.Background()

	poems := make([]Poem, 0, 150)
	for i := 0; i < 150; i++ {
		poems = append(poems, testPoem(
			fmt.Sprintf("p%03d", i),
			fmt.Sprintf("Raven %03d", i),
			"Anon",
			"verse.",
		))
	}
	if err := db.SavePoems(ctx, poems); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	results, err := db.SearchPoems(ctx, "Raven")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != MaxSearchResults {
		t.Fatalf("expected the result set capped at %v, got %v", MaxSearchResults, len(results))
	}
}

func TestMetaWordCount(t *testing.T) {
	db := createDB(t)
	ctx := context.Background()

	content := "Tyger Tyger, burning bright,\nIn the forests of the night."
	if err := db.SavePoems(ctx, []Poem{testPoem("p1", "The Tyger", "Blake", content)}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	meta, err := db.GetPoemPage(ctx, 10, 0)
	if err != nil {
		t.Fatalf("listing failed: %v", err)
	}
	if len(meta) != 1 {
		t.Fatalf("expected one row, got %v", len(meta))
	}

	want := len(strings.Fields(content))
	if meta[0].WordCount != want {
		t.Fatalf("expected word count %v, got %v", want, meta[0].WordCount)
	}
}

func TestAuthorQueries(t *testing.T) {
	db := createDB(t)
	ctx := context.Background()

	err := db.SavePoems(ctx, []Poem{
		testPoem("p1", "A", "Emily Dickinson", "one."),
		testPoem("p2", "B", "Emily Dickinson", "two."),
		testPoem("p3", "C", "Robert Frost", "three."),
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	count, err := db.CountByAuthor(ctx, "Emily Dickinson")
	if err != nil || count != 2 {
		t.Fatalf("expected 2 poems by Dickinson, got %v (err %v)", count, err)
	}

	has, err := db.HasAuthor(ctx, "Robert Frost")
	if err != nil || !has {
		t.Fatalf("expected Frost to exist (err %v)", err)
	}

	has, err = db.HasAuthor(ctx, "Unknown")
	if err != nil || has {
		t.Fatalf("expected Unknown to be absent (err %v)", err)
	}

	summaries, err := db.ListAuthors(ctx, 10, 0)
	if err != nil {
		t.Fatalf("author listing failed: %v", err)
	}
	want := []AuthorSummary{
		{Name: "Emily Dickinson", PoemCount: 2},
		{Name: "Robert Frost", PoemCount: 1},
	}
	if !reflect.DeepEqual(want, summaries) {
		t.Fatalf("wanted %+v, got %+v", want, summaries)
	}

	matches, err := db.SearchAuthors(ctx, "dickinson")
	if err != nil {
		t.Fatalf("author search failed: %v", err)
	}
	if len(matches) != 1 || matches[0].PoemCount != 2 {
		t.Fatalf("unexpected author search result: %+v", matches)
	}
}

func TestPoemIDAtIsStable(t *testing.T) {
	db := createDB(t)
	ctx := context.Background()

	err := db.SavePoems(ctx, []Poem{
		testPoem("b", "B", "x", "b."),
		testPoem("a", "A", "x", "a."),
		testPoem("c", "C", "x", "c."),
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// Ordered by id regardless of insertion order.
	for i, want := range []string{"a", "b", "c"} {
		got, err := db.PoemIDAt(ctx, i)
		if err != nil {
			t.Fatalf("id lookup at %v failed: %v", i, err)
		}
		if got != want {
			t.Fatalf("expected id %q at index %v, got %q", want, i, got)
		}
	}

	if _, err := db.PoemIDAt(ctx, 3); err == nil {
		t.Fatalf("expected an error past the end")
	}
}

func TestCursorRoundTrip(t *testing.T) {
	db := createDB(t)
	ctx := context.Background()

	got, err := db.GetCursor(ctx, "Rumi")
	if err != nil {
		t.Fatalf("cursor lookup failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no cursor initially, got %+v", got)
	}

	next := 2
	if err := db.SetCursor(ctx, PageCursor{Author: "Rumi", NextPage: &next}); err != nil {
		t.Fatalf("cursor write failed: %v", err)
	}

	got, err = db.GetCursor(ctx, "Rumi")
	if err != nil {
		t.Fatalf("cursor lookup failed: %v", err)
	}
	if got == nil || got.PrevPage != nil || got.NextPage == nil || *got.NextPage != 2 {
		t.Fatalf("unexpected cursor: %+v", got)
	}

	// Overwrite with a terminal cursor.
	if err := db.SetCursor(ctx, PageCursor{Author: "Rumi"}); err != nil {
		t.Fatalf("cursor write failed: %v", err)
	}
	got, err = db.GetCursor(ctx, "Rumi")
	if err != nil || got == nil {
		t.Fatalf("cursor lookup failed: %v (%+v)", err, got)
	}
	if got.NextPage != nil || got.PrevPage != nil {
		t.Fatalf("expected a terminal cursor, got %+v", got)
	}

	if err := db.ClearCursor(ctx, "Rumi"); err != nil {
		t.Fatalf("cursor clear failed: %v", err)
	}
	got, err = db.GetCursor(ctx, "Rumi")
	if err != nil || got != nil {
		t.Fatalf("expected the cursor to be gone, got %+v (err %v)", got, err)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	db := createDB(t)
	ctx := context.Background()

	value, err := db.GetSetting(ctx, "use_remote")
	if err != nil || value != "" {
		t.Fatalf("expected empty value for an unset key, got %q (err %v)", value, err)
	}

	if err := db.SetSetting(ctx, "use_remote", "true"); err != nil {
		t.Fatalf("setting write failed: %v", err)
	}
	if err := db.SetSetting(ctx, "use_remote", "false"); err != nil {
		t.Fatalf("setting overwrite failed: %v", err)
	}

	value, err = db.GetSetting(ctx, "use_remote")
	if err != nil || value != "false" {
		t.Fatalf("expected \"false\", got %q (err %v)", value, err)
	}
}

func TestDeletePoem(t *testing.T) {
	db := createDB(t)
	ctx := context.Background()

	if err := db.SavePoems(ctx, []Poem{testPoem("p1", "A", "x", "a.")}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := db.DeletePoem(ctx, "p1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	got, err := db.GetPoem(ctx, "p1")
	if err != nil || got != nil {
		t.Fatalf("expected the poem to be gone, got %+v (err %v)", got, err)
	}
}
