// Package moderation masks censored terms in message bodies before they
// reach the ledger. Matching runs on a normalized shadow of the text
// (lowercased, de-leeted, separator noise stripped) so spaced or
// punctuated variants of a term are still caught; masking is applied to
// the original runes, spacing preserved.
package moderation

import (
	"bufio"
	"log/slog"
	"os"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	machine *goahocorasick.Machine
	mask    rune
	log     *slog.Logger
}

// shadow tracks, for every normalized rune, the index of the original
// rune it came from, so match spans can be mapped back for masking.
type shadow struct {
	runes   []rune
	origIdx []int
}

func NewModerator(terms []string, mask rune, log *slog.Logger) (*Moderator, error) {
	patterns := make([][]rune, 0, len(terms))
	for _, term := range terms {
		normalized := normalize(term).runes
		if len(normalized) == 0 {
			continue
		}
		patterns = append(patterns, normalized)
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{machine: machine, mask: mask, log: log}, nil
}

// Censor returns the body with every matched term masked, plus the
// normalized terms that matched. The returned body is never shorter
// than the input; an all-masked body is still a non-empty body.
func (m *Moderator) Censor(body string) (string, []string) {
	sh := normalize(body)
	if len(sh.runes) == 0 {
		return body, nil
	}

	spans := m.machine.MultiPatternSearch(sh.runes, false)
	if len(spans) == 0 {
		return body, nil
	}

	masked := []rune(body)
	matched := make([]string, 0, len(spans))
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(sh.origIdx) {
			continue
		}
		matched = append(matched, string(span.Word))
		for i := sh.origIdx[start]; i <= sh.origIdx[end-1]; i++ {
			masked[i] = m.mask
		}
	}

	if len(matched) > 0 {
		m.log.Debug("Censored message body", "terms", len(matched))
	}
	return string(masked), matched
}

func normalize(input string) shadow {
	original := []rune(input)
	sh := shadow{
		runes:   make([]rune, 0, len(original)),
		origIdx: make([]int, 0, len(original)),
	}
	for i, r := range original {
		r = deleet(r)
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		sh.runes = append(sh.runes, unicode.ToLower(r))
		sh.origIdx = append(sh.origIdx, i)
	}
	return sh
}

// deleet maps the usual evasion substitutions back onto letters.
func deleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	case '7':
		return 't'
	default:
		return r
	}
}

// ReadTermsFile loads one censored term per line, skipping blanks and
// '#' comments.
func ReadTermsFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var terms []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, line)
	}
	return terms, scanner.Err()
}
