// Package filter decides which paths under a scan root take part in
// duplicate detection. Rules are rsync-style globs evaluated in order,
// first match wins; size bounds apply to regular files only.
package filter

// Rule is a single include or exclude rule.
type Rule struct {
	Pattern *compiledPattern
	Include bool
}

// Chain holds an ordered list of rules plus optional size bounds.
// A nil *Chain admits everything.
type Chain struct {
	rules   []Rule
	minSize int64
	maxSize int64
}

// NewChain creates an empty filter chain.
func NewChain() *Chain {
	return &Chain{}
}

// AddExclude appends an exclude rule.
func (c *Chain) AddExclude(pattern string) error {
	return c.add(pattern, false)
}

// AddInclude appends an include rule.
func (c *Chain) AddInclude(pattern string) error {
	return c.add(pattern, true)
}

func (c *Chain) add(pattern string, include bool) error {
	cp, err := compilePattern(pattern)
	if err != nil {
		return err
	}
	c.rules = append(c.rules, Rule{Pattern: cp, Include: include})
	return nil
}

// SetMinSize drops files smaller than n bytes. Zero disables the bound.
func (c *Chain) SetMinSize(n int64) { c.minSize = n }

// SetMaxSize drops files larger than n bytes. Zero disables the bound.
func (c *Chain) SetMaxSize(n int64) { c.maxSize = n }

// Empty reports whether the chain has no rules and no size bounds.
func (c *Chain) Empty() bool {
	return c == nil || (len(c.rules) == 0 && c.minSize == 0 && c.maxSize == 0)
}

// MatchDir reports whether the directory at relPath should be descended.
func (c *Chain) MatchDir(relPath string) bool {
	if c == nil {
		return true
	}
	return c.evaluate(relPath, true)
}

// MatchFile reports whether the regular file at relPath with the given
// size should be hashed.
func (c *Chain) MatchFile(relPath string, size int64) bool {
	if c == nil {
		return true
	}
	if c.minSize > 0 && size < c.minSize {
		return false
	}
	if c.maxSize > 0 && size > c.maxSize {
		return false
	}
	return c.evaluate(relPath, false)
}

func (c *Chain) evaluate(relPath string, isDir bool) bool {
	for _, rule := range c.rules {
		if rule.Pattern.match(relPath, isDir) {
			return rule.Include
		}
	}
	return true
}
