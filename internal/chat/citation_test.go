package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCitations(t *testing.T) {
	tests := []struct {
		name        string
		answer      string
		sourceFiles []string
		sourceTexts []string
		want        []Segment
	}{
		{
			name:   "out of range",
			answer: "See [5] for detail",
			want:   []Segment{{Text: "See [5] for detail"}},
		},
		{
			name:        "in range",
			answer:      "A[1]B",
			sourceFiles: []string{"file.md"},
			sourceTexts: []string{"desc"},
			want: []Segment{
				{Text: "A"},
				{Text: "[1]", Citation: &Citation{Index: 0, Title: "file.md", Description: "desc"}},
				{Text: "B"},
			},
		},
		{
			name:        "zero marker is literal",
			answer:      "x[0]y",
			sourceFiles: []string{"a"},
			want:        []Segment{{Text: "x[0]y"}},
		},
		{
			name:        "adjacent markers",
			answer:      "[2][1]",
			sourceFiles: []string{"a", "b"},
			sourceTexts: []string{"ta"},
			want: []Segment{
				{Text: "[2]", Citation: &Citation{Index: 1, Title: "b"}},
				{Text: "[1]", Citation: &Citation{Index: 0, Title: "a", Description: "ta"}},
			},
		},
		{
			name:        "mixed valid and invalid",
			answer:      "VPNを再起動してください。[1][3] 以上です。",
			sourceFiles: []string{"vpn.pdf"},
			sourceTexts: []string{"chunk"},
			want: []Segment{
				{Text: "VPNを再起動してください。"},
				{Text: "[1]", Citation: &Citation{Index: 0, Title: "vpn.pdf", Description: "chunk"}},
				{Text: "[3] 以上です。"},
			},
		},
		{
			name:   "empty answer",
			answer: "",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCitations(tt.answer, tt.sourceFiles, tt.sourceTexts)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCitationsRoundTrip(t *testing.T) {
	answers := []string{
		"",
		"plain",
		"[1]",
		"[",
		"]",
		"[]",
		"[a]",
		"[[1]]",
		"[1][2][3][4]",
		"trailing [2",
		"[99999999999999999999999] overflow",
		"[-1] negative",
		"複数の引用[1]と[2]、範囲外[7]。",
		"line\n[1]\nbreak",
	}
	fileSets := [][]string{nil, {"a"}, {"a", "b", "c"}}

	for _, answer := range answers {
		for _, files := range fileSets {
			segs := ParseCitations(answer, files, files)
			require.Equal(t, answer, Text(segs), "answer %q files %v", answer, files)
			for _, s := range segs {
				if s.Citation != nil {
					assert.Less(t, s.Citation.Index, len(files))
					assert.GreaterOrEqual(t, s.Citation.Index, 0)
				}
			}
		}
	}
}
