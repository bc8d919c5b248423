package poster

import (
	"strings"
	"testing"

	"movielist/pkg/domain"
)

func TestURLPrependsBaseForRelativePaths(t *testing.T) {
	for _, quality := range []string{"w92", "w300", "w500", "original"} {
		got := URL("/abc.jpg", quality)
		if !strings.HasPrefix(got, BaseURL+quality) {
			t.Fatalf("URL(%q) = %q, want prefix %q", quality, got, BaseURL+quality)
		}
		if !strings.HasSuffix(got, "/abc.jpg") {
			t.Fatalf("URL(%q) = %q, want suffix /abc.jpg", quality, got)
		}
	}
}

func TestURLKeepsAbsoluteInput(t *testing.T) {
	abs := "https://image.tmdb.org/t/p/w300/abc.jpg"
	if got := URL(abs, "w500"); got != abs {
		t.Fatalf("URL(absolute) = %q, want unchanged %q", got, abs)
	}
}

func TestURLEmptyInput(t *testing.T) {
	if got := URL("", "w300"); got != "" {
		t.Fatalf("URL(empty) = %q, want empty", got)
	}
}

func TestURLDefaultsQuality(t *testing.T) {
	want := BaseURL + DefaultQuality + "/p.jpg"
	if got := URL("/p.jpg", ""); got != want {
		t.Fatalf("URL with empty quality = %q, want %q", got, want)
	}
}

func TestNormalizeRewritesOnlyPoster(t *testing.T) {
	res := domain.SearchResult{ID: 77, Title: "One", PosterPath: "/p.jpg"}
	got := Normalize(res, "w300")
	if got.PosterPath != BaseURL+"w300/p.jpg" {
		t.Fatalf("poster = %q, want %q", got.PosterPath, BaseURL+"w300/p.jpg")
	}
	if got.ID != 77 || got.Title != "One" {
		t.Fatalf("other fields changed: %+v", got)
	}
	if res.PosterPath != "/p.jpg" {
		t.Fatalf("input mutated: %q", res.PosterPath)
	}
}
