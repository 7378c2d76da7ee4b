package taskservice

import (
	"strings"
	"testing"

	"github.com/starford/tasknote/internal/models"
)

func TestHighlightSnippetWindow(t *testing.T) {
	long := strings.Repeat("a", 50) + "needle" + strings.Repeat("b", 50)
	h := highlight(models.Task{Title: "x", Notes: []models.Note{{Content: long}}}, "needle")
	if h == nil || len(h.Content) != 1 {
		t.Fatalf("highlight = %+v", h)
	}
	want := "..." + strings.Repeat("a", 30) + "<mark>needle</mark>" + strings.Repeat("b", 30) + "..."
	if h.Content[0] != want {
		t.Errorf("snippet = %q", h.Content[0])
	}
	if h.Title != nil {
		t.Errorf("title should not be highlighted: %q", h.Title)
	}
}

func TestHighlightCJK(t *testing.T) {
	h := highlight(models.Task{Title: "整理会议纪要"}, "会议")
	if h == nil || h.Title[0] != "整理<mark>会议</mark>纪要" {
		t.Errorf("highlight = %+v", h)
	}
}

func TestHighlightNoMatch(t *testing.T) {
	if h := highlight(models.Task{Title: "abc"}, "z"); h != nil {
		t.Errorf("highlight = %+v", h)
	}
}
