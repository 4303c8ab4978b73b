package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const maskRune = '-'

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

// buildSentenceRunes renders a sentence for self-paced reading: the word at
// reveal is shown and every other word is masked rune for rune. A negative
// reveal masks the whole sentence.
func buildSentenceRunes(sentence string, reveal int) []styledRune {
	words := strings.Fields(sentence)
	out := make([]styledRune, 0, len(sentence))
	for i, word := range words {
		if i > 0 {
			out = append(out, styledRune{s: " ", width: 1, isSpace: true})
		}
		for _, r := range word {
			if i == reveal {
				out = append(out, styledRune{
					s:     sentenceStyle.Render(string(r)),
					width: runewidth.RuneWidth(r),
				})
				continue
			}
			// Masks match the cell width of the hidden rune.
			w := runewidth.RuneWidth(r)
			out = append(out, styledRune{
				s:     maskStyle.Render(strings.Repeat(string(maskRune), w)),
				width: w,
			})
		}
	}
	return out
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderStyledRunes(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderStyledRunes(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
