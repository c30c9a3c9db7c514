package chat

import (
	"regexp"
	"strconv"
	"strings"
)

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// Citation is a resolved [N] marker. Index is zero-based.
type Citation struct {
	Index       int
	Title       string
	Description string
}

// Segment is either plain text or a citation. Text always holds the literal
// source text, so joining every Segment.Text gives back the answer.
type Segment struct {
	Text     string
	Citation *Citation
}

// ParseCitations splits a RAG answer into plain and citation segments.
// Markers that do not index into sourceFiles stay plain text.
func ParseCitations(answer string, sourceFiles, sourceTexts []string) []Segment {
	var (
		segs  []Segment
		plain strings.Builder
		last  int
	)
	flush := func() {
		if plain.Len() > 0 {
			segs = append(segs, Segment{Text: plain.String()})
			plain.Reset()
		}
	}

	for _, m := range citationPattern.FindAllStringSubmatchIndex(answer, -1) {
		plain.WriteString(answer[last:m[0]])
		last = m[1]
		marker := answer[m[0]:m[1]]

		n, err := strconv.Atoi(answer[m[2]:m[3]])
		idx := n - 1
		if err != nil || idx < 0 || idx >= len(sourceFiles) {
			plain.WriteString(marker)
			continue
		}

		flush()
		c := &Citation{Index: idx, Title: sourceFiles[idx]}
		if idx < len(sourceTexts) {
			c.Description = sourceTexts[idx]
		}
		segs = append(segs, Segment{Text: marker, Citation: c})
	}
	plain.WriteString(answer[last:])
	flush()
	return segs
}

// Text joins the segments back into the original string.
func Text(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Text)
	}
	return b.String()
}
