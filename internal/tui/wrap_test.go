package tui

import (
	"strings"
	"testing"
)

func TestBuildSentenceRunesMasksAll(t *testing.T) {
	runes := buildSentenceRunes("The cat", -1)
	if len(runes) != 7 {
		t.Fatalf("expected 7 runes, got %d", len(runes))
	}
	for i, r := range runes {
		if i == 3 {
			if !r.isSpace {
				t.Fatalf("expected word separator at 3")
			}
			continue
		}
		if r.s != maskStyle.Render("-") {
			t.Fatalf("expected mask at %d, got %q", i, r.s)
		}
	}
}

func TestBuildSentenceRunesRevealsOneWord(t *testing.T) {
	runes := buildSentenceRunes("The cat sat", 1)
	if runes[0].s != maskStyle.Render("-") {
		t.Fatalf("expected first word masked")
	}
	if runes[4].s != sentenceStyle.Render("c") || runes[6].s != sentenceStyle.Render("t") {
		t.Fatalf("expected second word revealed")
	}
	if runes[8].s != maskStyle.Render("-") {
		t.Fatalf("expected third word masked")
	}
}

func TestBuildSentenceRunesWideRunes(t *testing.T) {
	runes := buildSentenceRunes("猫", -1)
	if len(runes) != 1 || runes[0].width != 2 {
		t.Fatalf("expected one double-width mask, got %+v", runes)
	}
	if runes[0].s != maskStyle.Render("--") {
		t.Fatalf("unexpected mask %q", runes[0].s)
	}
}

func TestWrapStyledRunesBreaksAtSpaces(t *testing.T) {
	runes := buildSentenceRunes("aaa bbb ccc", 0)
	out := wrapStyledRunes(runes, 7)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", out)
	}
	if got := lineWidthOf(buildSentenceRunes("aaa bbb", 0)); got != 7 {
		t.Fatalf("expected width 7, got %d", got)
	}
}

func TestWrapStyledRunesHardBreak(t *testing.T) {
	runes := buildSentenceRunes("abcdef", -1)
	out := wrapStyledRunes(runes, 4)
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected a hard break, got %q", out)
	}
}
