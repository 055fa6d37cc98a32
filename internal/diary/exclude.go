package diary

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Matcher decides whether a vault path lies in an excluded folder.
//
// Plain entries are folder prefixes: "Templates" and "Templates/" both
// exclude everything under Templates/. Entries containing glob
// metacharacters are matched against the whole path with '/' as separator,
// so "**/drafts/**" excludes drafts folders at any depth.
type Matcher struct {
	prefixes []string
	globs    []glob.Glob
}

// NewMatcher compiles the excluded-folder list. Blank entries are ignored.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.ContainsAny(p, "*?[{") {
			g, err := glob.Compile(p, '/')
			if err != nil {
				return nil, fmt.Errorf("diary: invalid exclusion pattern %q: %w", p, err)
			}
			m.globs = append(m.globs, g)
			continue
		}
		if !strings.HasSuffix(p, "/") {
			p += "/"
		}
		m.prefixes = append(m.prefixes, p)
	}
	return m, nil
}

// Excluded reports whether path matches any exclusion.
func (m *Matcher) Excluded(path string) bool {
	for _, p := range m.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	for _, g := range m.globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}
