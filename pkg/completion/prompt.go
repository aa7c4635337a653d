package completion

import (
	"strings"

	"kestrel-hq/kestrel/pkg/index"
)

const (
	prefixPlaceholder = "{prefix}"
	suffixPlaceholder = "{suffix}"
)

// renderTemplate substitutes prefix and suffix into a fill-in-the-middle
// template. An empty template yields the prefix alone.
func renderTemplate(template, prefix, suffix string) string {
	if template == "" {
		return prefix
	}
	return strings.NewReplacer(prefixPlaceholder, prefix, suffixPlaceholder, suffix).Replace(template)
}

// fitSegments trims prefix and suffix so that together they fit in maxLen
// characters. The suffix gets at most a quarter of the budget; the prefix
// keeps the text nearest the cursor.
func fitSegments(prefix, suffix string, maxLen int) (string, string) {
	if maxLen <= 0 || len(prefix)+len(suffix) <= maxLen {
		return prefix, suffix
	}

	suffixBudget := min(len(suffix), maxLen/4)
	suffix = headRunes(suffix, suffixBudget)
	prefix = tailRunes(prefix, maxLen-len(suffix))
	return prefix, suffix
}

// snippetBlock renders hits as line comments, stopping before maxChars is
// exceeded. It returns the block and the number of snippets used.
func snippetBlock(hits []index.CodeHit, lang Language, maxChars int) (string, int) {
	var b strings.Builder
	used := 0
	for _, hit := range hits {
		var s strings.Builder
		s.WriteString(lang.CommentPrefix + " Path: " + hit.Filepath + "\n")
		for _, line := range strings.Split(strings.TrimRight(hit.Body, "\n"), "\n") {
			s.WriteString(lang.CommentPrefix + " " + line + "\n")
		}
		if b.Len()+s.Len() > maxChars {
			break
		}
		b.WriteString(s.String())
		used++
	}
	return b.String(), used
}

// snippetQuery is the text used to look up related code: the last few
// non-empty lines before the cursor.
func snippetQuery(prefix string) string {
	lines := strings.Split(prefix, "\n")
	var kept []string
	for i := len(lines) - 1; i >= 0 && len(kept) < 8; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			kept = append(kept, lines[i])
		}
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return strings.Join(kept, "\n")
}

// trimOutput cuts the generated text at the first stop word and removes
// trailing whitespace.
func trimOutput(text string, stopWords []string) string {
	cut := len(text)
	for _, w := range stopWords {
		if i := strings.Index(text, w); i >= 0 && i < cut {
			cut = i
		}
	}
	return strings.TrimRight(text[:cut], " \t\r\n")
}

func tailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !isRuneStart(s[start]) {
		start++
	}
	return s[start:]
}

func headRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	end := n
	for end > 0 && !isRuneStart(s[end]) {
		end--
	}
	return s[:end]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
