// Package security screens inbound messages for prompt injection and
// abusive input before they reach the language model.
package security

import (
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// Reason identifies why a message was rejected.
type Reason string

const (
	ReasonInjection  Reason = "injection"
	ReasonRepetition Reason = "repetition"
	ReasonChars      Reason = "special_chars"
)

const (
	maxRepeatedWords = 10
	maxSanitizedLen  = 2000
	repeatedRunLen   = 10
)

// injectionPatterns are matched case-insensitively against the raw message.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(previous|above|all)\s+instructions?`),
	regexp.MustCompile(`(?i)disregard\s+(previous|above|all)\s+instructions?`),
	regexp.MustCompile(`(?i)forget\s+(previous|above|all)\s+instructions?`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+a`),
	regexp.MustCompile(`(?i)pretend\s+to\s+be`),
	regexp.MustCompile(`(?i)roleplay\s+as`),
	regexp.MustCompile(`(?i)system\s*:\s*`),
	regexp.MustCompile(`(?i)<\s*system\s*>`),
	regexp.MustCompile(`(?i)\[system\]`),
	regexp.MustCompile(`(?i)sudo\s+`),
	regexp.MustCompile(`(?i)admin\s+mode`),
	regexp.MustCompile(`(?i)developer\s+mode`),
	regexp.MustCompile(`(?i)jailbreak`),
	regexp.MustCompile(`(?i)dan\s+mode`),
	regexp.MustCompile(`(?i)do\s+anything\s+now`),
}

// actAsPattern needs an exclusion list because role-play requests are
// blocked except when the asked-for role is a student persona.
var actAsPattern = regexp.MustCompile(`(?i)act\s+as\s+(?:a\s+)?(\S+)`)

var actAsAllowed = map[string]struct{}{
	"aluno":     {},
	"estudante": {},
}

// allowedPunct are characters that do not count toward the special
// character density check. Portuguese accented letters are handled by
// the alphanumeric check on runes.
const allowedPunct = `.,!?;:-'"()`

// Filter screens messages before they are handed to the model. The
// zero value is not usable; construct with NewFilter.
type Filter struct {
	logger *slog.Logger
}

// NewFilter creates a message filter. A nil logger disables logging.
func NewFilter(logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Filter{logger: logger.With("component", "security")}
}

// Check inspects a message for injection attempts, excessive repetition
// and suspicious character density. It returns ok=false with the first
// matching reason; checks run in a fixed order so the reported reason
// is deterministic.
func (f *Filter) Check(message string) (ok bool, reason Reason) {
	for _, p := range injectionPatterns {
		if p.MatchString(message) {
			f.logger.Warn("injection pattern matched", "pattern", p.String())

			return false, ReasonInjection
		}
	}

	if m := actAsPattern.FindStringSubmatch(message); m != nil {
		role := strings.ToLower(strings.Trim(m[1], allowedPunct))
		if _, permitted := actAsAllowed[role]; !permitted {
			f.logger.Warn("injection pattern matched", "pattern", actAsPattern.String())

			return false, ReasonInjection
		}
	}

	if hasExcessiveRepetition(message) {
		f.logger.Warn("excessive repetition detected")

		return false, ReasonRepetition
	}

	if hasSuspiciousChars(message) {
		f.logger.Warn("suspicious character density detected")

		return false, ReasonChars
	}

	return true, ""
}

// Sanitize normalizes raw input: control characters are dropped, runs
// of whitespace collapse to a single space and the result is truncated
// to 2000 characters.
func (f *Filter) Sanitize(message string) string {
	var b strings.Builder

	b.Grow(len(message))

	for _, r := range message {
		if r == 0 || (r < 0x20 && r != '\n' && r != '\t') {
			continue
		}

		b.WriteRune(r)
	}

	message = strings.Join(strings.Fields(b.String()), " ")

	runes := []rune(message)
	if len(runes) > maxSanitizedLen {
		message = string(runes[:maxSanitizedLen])
		f.logger.Warn("message truncated", "limit", maxSanitizedLen)
	}

	return strings.TrimSpace(message)
}

// hasExcessiveRepetition reports whether the message contains a run of
// ten or more identical characters, or a single word repeated more than
// ten times in messages longer than five words.
func hasExcessiveRepetition(message string) bool {
	runLen := 0

	var prev rune

	for i, r := range message {
		if i > 0 && r == prev {
			runLen++
			if runLen >= repeatedRunLen {
				return true
			}
		} else {
			runLen = 1
		}

		prev = r
	}

	words := strings.Fields(message)
	if len(words) > 5 {
		counts := make(map[string]int, len(words))
		for _, w := range words {
			counts[w]++
			if counts[w] > maxRepeatedWords {
				return true
			}
		}
	}

	return false
}

// hasSuspiciousChars reports whether more than 20% of the message is
// made of characters outside letters, digits, whitespace and common
// punctuation.
func hasSuspiciousChars(message string) bool {
	if message == "" {
		return false
	}

	total := 0
	special := 0

	for _, r := range message {
		total++

		if isAlnum(r) || isSpace(r) || strings.ContainsRune(allowedPunct, r) {
			continue
		}

		special++
	}

	return float64(special)/float64(total) > 0.2
}

func isAlnum(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case strings.ContainsRune("áéíóúãõâêôàèìòùçÁÉÍÓÚÃÕÂÊÔÀÈÌÒÙÇ", r):
		return true
	}

	return false
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
