package index

import (
	"path/filepath"
	"strings"
)

var languageByExt = map[string]string{
	".go":    "go",
	".py":    "python",
	".rs":    "rust",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".kt":    "kotlin",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".scala": "scala",
	".lua":   "lua",
	".sh":    "bash",
	".sql":   "sql",
}

// DetectLanguage returns the language identifier for a file path, or "" if
// the file is not source code.
func DetectLanguage(path string) string {
	return languageByExt[strings.ToLower(filepath.Ext(path))]
}

// Chunk is a contiguous run of lines from one file.
type Chunk struct {
	StartLine int // 1-based
	Body      string
}

// ChunkLines splits content into chunks of at most n lines. Chunks that are
// only whitespace are skipped.
func ChunkLines(content string, n int) []Chunk {
	if n <= 0 {
		n = 40
	}

	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	var chunks []Chunk
	for start := 0; start < len(lines); start += n {
		end := min(start+n, len(lines))
		body := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(body) == "" {
			continue
		}
		chunks = append(chunks, Chunk{StartLine: start + 1, Body: body})
	}
	return chunks
}

// ChunkText splits prose into chunks of roughly size bytes, breaking on
// whitespace.
func ChunkText(text string, size int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var b strings.Builder
	for _, w := range words {
		if b.Len() > 0 && b.Len()+1+len(w) > size {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}
