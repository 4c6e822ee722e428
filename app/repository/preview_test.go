package repository

import (
	"strings"
	"testing"

	"github.com/weehan299/poetica/app/database"
)

func remotePoem(content string) database.Poem {
	return database.Poem{ID: "api_1", SourceType: database.SourceRemote, Content: content}
}

func fullText(length int) string {
	// Multi-line body with terminal punctuation and no ellipses.
	line := "A line of considerable verse\n"
	body := strings.Repeat(line, length/len(line)+1)
	return body[:length-1] + "."
}

func TestIsPreview(t *testing.T) {
	table := []struct {
		name string
		poem database.Poem
		want bool
	}{
		{"short content", remotePoem(strings.Repeat("a", 50)), true},
		{"exactly at threshold", remotePoem(fullText(250)), true},
		{"long complete text", remotePoem(fullText(5000)), false},
		{"leading ellipsis", remotePoem("..." + fullText(1000)), true},
		{"embedded ellipsis", remotePoem(fullText(500) + " more ... " + fullText(500)), true},
		{"unicode ellipsis", remotePoem(fullText(500) + "…" + fullText(500)), true},
		{"no terminal punctuation", remotePoem(strings.Repeat("word words more\n", 40)), true},
		{"bundled never preview", database.Poem{SourceType: database.SourceBundled, Content: "hi"}, false},
		{"user never preview", database.Poem{SourceType: database.SourceUser, Content: "hi"}, false},
	}

	for _, testCase := range table {
		if got := IsPreview(testCase.poem); got != testCase.want {
			t.Fatalf("%v: IsPreview = %v, want %v", testCase.name, got, testCase.want)
		}
	}
}

func TestIsPreviewDeterministic(t *testing.T) {
	poem := remotePoem(fullText(4000))

	first := IsPreview(poem)
	for i := 0; i < 10; i++ {
		if IsPreview(poem) != first {
			t.Fatalf("IsPreview is not deterministic")
		}
	}
}
