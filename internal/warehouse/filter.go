package warehouse

import (
	"regexp"

	"bqdesc-backupper/internal/errors"
)

const (
	// MatchAll is the default include pattern
	MatchAll = `.*`
	// MatchNone is the default exclude pattern
	MatchNone = `^$`
)

// Filter selects dataset or table ids. An id is included iff it matches
// Include and does not match Exclude. Both are unanchored searches.
type Filter struct {
	include *regexp.Regexp
	exclude *regexp.Regexp
}

// NewFilter compiles include and exclude patterns. Empty patterns fall back to
// MatchAll and MatchNone.
func NewFilter(include, exclude string) (*Filter, error) {
	if include == "" {
		include = MatchAll
	}
	if exclude == "" {
		exclude = MatchNone
	}

	inc, err := regexp.Compile(include)
	if err != nil {
		return nil, errors.NewConfigurationError("invalid include pattern", err).WithContext("pattern", include)
	}
	exc, err := regexp.Compile(exclude)
	if err != nil {
		return nil, errors.NewConfigurationError("invalid exclude pattern", err).WithContext("pattern", exclude)
	}
	return &Filter{include: inc, exclude: exc}, nil
}

// MatchAllFilter returns a filter that includes every id
func MatchAllFilter() *Filter {
	f, _ := NewFilter(MatchAll, MatchNone)
	return f
}

// Match reports whether id is included. A nil filter includes everything.
func (f *Filter) Match(id string) bool {
	if f == nil {
		return true
	}
	return f.include.MatchString(id) && !f.exclude.MatchString(id)
}

func (f *Filter) String() string {
	if f == nil {
		return "include=" + MatchAll + " exclude=" + MatchNone
	}
	return "include=" + f.include.String() + " exclude=" + f.exclude.String()
}
