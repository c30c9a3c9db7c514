package chat

import (
	"strings"

	"github.com/set-night/coworker/internal/domain"
)

const (
	faqQuestionLabel = "質問:"
	faqAnswerLabel   = "回答:"
)

type FaqEntry struct {
	Question string
	Answer   string
}

// ParseFaqSourceText reads "質問: Q 回答: A". Everything after the first
// answer label, further labels included, is the answer. Without an answer
// label both fields are empty.
func ParseFaqSourceText(text string) FaqEntry {
	parts := strings.Split(text, faqAnswerLabel)
	if len(parts) < 2 {
		return FaqEntry{}
	}
	q := strings.TrimSpace(parts[0])
	q = strings.TrimSpace(strings.TrimPrefix(q, faqQuestionLabel))
	return FaqEntry{
		Question: q,
		Answer:   strings.TrimSpace(strings.Join(parts[1:], faqAnswerLabel)),
	}
}

type FaqItem struct {
	FaqEntry
	SourceFile string
	ChunkID    string
	Metadata   string
}

// FaqItems zips the aligned FAQ slices. Surplus entries of longer slices are
// ignored. When a source text carries no answer label the backend's answer
// is used as is.
func FaqItems(faq *domain.FaqResult) []FaqItem {
	if faq == nil {
		return nil
	}
	items := make([]FaqItem, 0, faq.Len())
	for i := 0; i < faq.Len(); i++ {
		e := ParseFaqSourceText(faq.SourceTexts[i])
		if e.Answer == "" {
			e.Answer = strings.TrimSpace(faq.Answer[i])
		}
		items = append(items, FaqItem{
			FaqEntry:   e,
			SourceFile: faq.SourceFiles[i],
			ChunkID:    faq.ChunkIDs[i],
			Metadata:   faq.MetadataList[i],
		})
	}
	return items
}
