// Package textutil 提供证据检索相关的文本处理工具函数。
package textutil

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CosineSimilarity 计算两个向量的余弦相似度，返回值范围为 [-1, 1]。
// 任一向量为零向量、为空或维度不一致时相似度无定义，返回最小值 -1。
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return -1
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) {
		return -1
	}
	// 浮点误差可能略微越界
	return math.Max(-1, math.Min(1, sim))
}

// TruncateString 截断字符串到指定的最大 Unicode 字符数。
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}

var paragraphBreak = regexp.MustCompile(`\n[ \t\r\f\v]*\n`)

// abbreviations never end a sentence when followed by a period.
var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "sr": {}, "jr": {},
	"st": {}, "vs": {}, "e.g": {}, "i.e": {}, "inc": {}, "ltd": {}, "co": {},
	"corp": {}, "fig": {}, "vol": {}, "approx": {}, "dept": {},
	"u.s": {}, "cf": {}, "al": {}, "p": {}, "pp": {},
}

// SplitSentences splits text into trimmed sentences.
//
// Boundaries are ., !, ?, … followed by whitespace or end of text, and the
// full-width 。！？ anywhere. Closing quotes and brackets stay with their
// sentence. A period after a known abbreviation or an initial in a run of
// initials is not a boundary. Blank lines always end a sentence; single
// line breaks are treated as spaces.
func SplitSentences(text string) []string {
	var out []string
	for _, para := range paragraphBreak.Split(text, -1) {
		para = strings.Join(strings.Fields(para), " ")
		if para == "" {
			continue
		}
		out = append(out, splitParagraph([]rune(para))...)
	}
	return out
}

func splitParagraph(runes []rune) []string {
	var out []string
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if !isTerminal(r) {
			continue
		}

		end := i + 1
		for end < len(runes) && (isTerminal(runes[end]) || isCloser(runes[end])) {
			end++
		}

		if end < len(runes) && !unicode.IsSpace(runes[end]) && !isFullWidthTerminal(r) {
			// 3.14、e.g.x 之类
			i = end - 1
			continue
		}
		if r == '.' && !containsTerminal(runes[i+1:end]) && isAbbreviation(runes[start:i], runes[end:]) {
			continue
		}

		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
		i = end - 1
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		out = append(out, tail)
	}
	return out
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return isFullWidthTerminal(r)
}

func isFullWidthTerminal(r rune) bool {
	return r == '。' || r == '！' || r == '？'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’', '）', '」', '』', '》':
		return true
	}
	return false
}

func containsTerminal(rs []rune) bool {
	for _, r := range rs {
		if isTerminal(r) {
			return true
		}
	}
	return false
}

// isAbbreviation reports whether the word ending before is an abbreviation
// that does not end a sentence given the text that follows.
//
// "No." only counts before a number (No. 5). A single capital initial only
// counts inside a run of initials (J. R. Doe), so "Appendix B. Revenue rose"
// still splits.
func isAbbreviation(before, after []rune) bool {
	j := len(before)
	for j > 0 && (unicode.IsLetter(before[j-1]) || before[j-1] == '.') {
		j--
	}
	word := before[j:]
	if len(word) == 0 {
		return false
	}

	next := firstToken(after)
	if len(word) == 1 && unicode.IsUpper(word[0]) {
		return isInitial(next) || isInitial(lastToken(before[:j]))
	}

	lower := strings.ToLower(strings.Trim(string(word), "."))
	if lower == "no" {
		return len(next) > 0 && unicode.IsDigit(next[0])
	}
	_, ok := abbreviations[lower]
	return ok
}

// isInitial reports whether tok is a single capital letter followed by a period.
func isInitial(tok []rune) bool {
	return len(tok) == 2 && unicode.IsUpper(tok[0]) && tok[1] == '.'
}

func firstToken(rs []rune) []rune {
	i := 0
	for i < len(rs) && unicode.IsSpace(rs[i]) {
		i++
	}
	j := i
	for j < len(rs) && !unicode.IsSpace(rs[j]) {
		j++
	}
	return rs[i:j]
}

func lastToken(rs []rune) []rune {
	j := len(rs)
	for j > 0 && unicode.IsSpace(rs[j-1]) {
		j--
	}
	i := j
	for i > 0 && !unicode.IsSpace(rs[i-1]) {
		i--
	}
	return rs[i:j]
}
