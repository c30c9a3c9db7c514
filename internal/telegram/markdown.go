package telegram

import (
	"strings"
	"unicode/utf8"
)

const fence = "```"

// SplitMessage splits a message into chunks of at most maxLen runes, trying
// to split at newlines when possible. A code block cut by a split is closed
// at the end of its chunk and reopened in the next one.
func SplitMessage(text string, maxLen int) []string {
	if utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	// Room for the closing and reopening fences.
	budget := maxLen - 2*(len(fence)+1)
	if budget < 1 {
		budget = maxLen
	}

	var parts []string
	inCode := false
	for len(text) > 0 {
		prefix := ""
		if inCode {
			prefix = fence + "\n"
		}

		runes := []rune(text)
		if len(runes)+utf8.RuneCountInString(prefix) <= maxLen {
			parts = append(parts, prefix+text)
			break
		}

		// Try to split at a newline
		splitAt := budget
		chunk := string(runes[:budget])
		if lastNewline := strings.LastIndex(chunk, "\n"); lastNewline > len(chunk)/2 {
			splitAt = utf8.RuneCountInString(chunk[:lastNewline+1])
		}

		part := string(runes[:splitAt])
		if strings.Count(part, fence)%2 != 0 {
			inCode = !inCode
		}
		part = prefix + part
		if inCode {
			part = strings.TrimRight(part, "\n") + "\n" + fence
		}
		parts = append(parts, part)
		text = string(runes[splitAt:])
	}

	return parts
}

// FixMarkdown closes an unbalanced code block or inline code span so the
// text parses as legacy Markdown.
func FixMarkdown(text string) string {
	if strings.Count(text, fence)%2 != 0 {
		text += "\n" + fence
	}
	return fixInlineCode(text)
}

func fixInlineCode(text string) string {
	var builder strings.Builder
	inCodeBlock := false
	inlineOpen := false

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if i+2 < len(runes) && string(runes[i:i+3]) == fence {
			if inlineOpen {
				builder.WriteRune('`')
				inlineOpen = false
			}
			inCodeBlock = !inCodeBlock
			builder.WriteString(fence)
			i += 2
			continue
		}

		if !inCodeBlock && runes[i] == '`' {
			inlineOpen = !inlineOpen
		}

		builder.WriteRune(runes[i])
	}

	if inlineOpen {
		builder.WriteRune('`')
	}

	return builder.String()
}

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
)

// EscapeMarkdown escapes text that must be shown literally in a legacy
// Markdown message, like file names and user input.
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}
