package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redactor masks credentials in log output.
type Redactor struct {
	patterns []*redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Pattern names.
const (
	PatternAPIKey      = "api_key"
	PatternBearerToken = "bearer_token"
	PatternPassword    = "password"
	PatternURLUserinfo = "url_userinfo"
)

var defaultPatterns = []struct {
	name        string
	regex       string
	replacement string
}{
	{PatternBearerToken, `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer ***"},
	{PatternAPIKey, `\b(sk|hf|gsk)[-_][a-zA-Z0-9\-_]{8,}`, "$1-***"},
	{PatternPassword, `(?i)(password|passwd|pwd)[:=]\s*[^\s&]+`, "$1=***"},
	{PatternURLUserinfo, `(https?://)[^/\s:@]+:[^/\s@]+@`, "$1***@"},
}

// sensitiveKeys are attribute key fragments whose values are always masked.
var sensitiveKeys = []string{
	"password", "passwd", "secret", "token",
	"api_key", "apikey", "authorization", "private_key",
}

// NewRedactor creates a Redactor with the built-in patterns.
func NewRedactor() *Redactor {
	r := &Redactor{}
	for _, p := range defaultPatterns {
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}
	return r
}

// RedactString masks every pattern match in value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactAttr masks a, descending into groups. Values under a sensitive key
// are replaced wholesale; other string values are pattern-matched.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	switch {
	case v.Kind() == slog.KindGroup:
		attrs := v.Group()
		redacted := make([]any, len(attrs))
		for i, ga := range attrs {
			redacted[i] = r.RedactAttr(ga)
		}
		return slog.Group(a.Key, redacted...)
	case isSensitiveKey(a.Key):
		if v.Kind() == slog.KindString {
			return slog.String(a.Key, RedactAPIKey(v.String()))
		}
		return slog.String(a.Key, "***")
	case v.Kind() == slog.KindString:
		return slog.String(a.Key, r.RedactString(v.String()))
	case v.Kind() == slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// RedactAPIKey keeps the first four characters of a key for identification.
func RedactAPIKey(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	if len(apiKey) <= 4 {
		return "***"
	}
	return apiKey[:4] + "***"
}
