package filter

import (
	"regexp"
	"strings"
)

// compiledPattern is one glob rule translated to a regular expression.
type compiledPattern struct {
	re       *regexp.Regexp
	original string
	anchored bool // matched from the scan root
	dirOnly  bool // trailing slash: directories only
}

// compilePattern translates an rsync-style glob. A leading slash, or any
// slash inside the pattern, anchors it to the scan root; otherwise it
// matches the basename or any trailing path suffix.
func compilePattern(pattern string) (*compiledPattern, error) {
	cp := &compiledPattern{original: pattern}

	if trimmed, ok := strings.CutSuffix(pattern, "/"); ok {
		cp.dirOnly = true
		pattern = trimmed
	}
	if trimmed, ok := strings.CutPrefix(pattern, "/"); ok {
		cp.anchored = true
		pattern = trimmed
	} else {
		cp.anchored = strings.Contains(pattern, "/")
	}

	prefix := "(^|/)"
	if cp.anchored {
		prefix = "^"
	}

	re, err := regexp.Compile(prefix + globToRegex(pattern) + "$")
	if err != nil {
		return nil, err
	}
	cp.re = re
	return cp, nil
}

func (cp *compiledPattern) match(relPath string, isDir bool) bool {
	if cp.dirOnly && !isDir {
		return false
	}
	return cp.re.MatchString(relPath)
}

// globToRegex converts glob syntax to an unanchored regex body.
// "*" stays within one path segment, "**" crosses segments, "**/" matches
// zero or more leading directories and "[!x]" negates a class.
func globToRegex(glob string) string {
	var b strings.Builder
	for i := 0; i < len(glob); i++ {
		switch glob[i] {
		case '*':
			if !strings.HasPrefix(glob[i:], "**") {
				b.WriteString("[^/]*")
				continue
			}
			if strings.HasPrefix(glob[i:], "**/") {
				b.WriteString("(.*/)?")
				i += 2
			} else {
				b.WriteString(".*")
				i++
			}
		case '?':
			b.WriteString("[^/]")
		case '[':
			end := classEnd(glob, i)
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			class := glob[i+1 : end]
			if rest, ok := strings.CutPrefix(class, "!"); ok {
				class = "^" + rest
			}
			b.WriteString("[" + class + "]")
			i = end
		default:
			b.WriteString(regexp.QuoteMeta(glob[i : i+1]))
		}
	}
	return b.String()
}

// classEnd returns the index of the ']' closing the class opened at
// glob[start], or -1. A ']' directly after "[" or "[!" is literal.
func classEnd(glob string, start int) int {
	j := start + 1
	if j < len(glob) && glob[j] == '!' {
		j++
	}
	if j < len(glob) && glob[j] == ']' {
		j++
	}
	if k := strings.IndexByte(glob[j:], ']'); k >= 0 {
		return j + k
	}
	return -1
}
