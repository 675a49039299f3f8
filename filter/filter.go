package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dhcgn/flight-price-tracker/model"
)

var ErrModeConflict = errors.New("include and exclude filters are mutually exclusive")

// Options captures the filtering configuration. Header patterns run against
// the raw header block, body patterns against the decoded text body.
type Options struct {
	IncludeHeader []string
	IncludeBody   []string
	ExcludeHeader []string
	ExcludeBody   []string
}

type target int

const (
	targetHeader target = iota
	targetBody
)

type rule struct {
	target  target
	pattern *regexp.Regexp
}

func (r rule) matches(msg model.Message) bool {
	if r.target == targetHeader {
		return r.pattern.MatchString(msg.Header)
	}
	return r.pattern.MatchString(msg.Body)
}

// Filter decides which messages reach layout detection.
type Filter struct {
	include []rule
	exclude []rule
}

// New compiles the patterns in opts. Include and exclude rules cannot be
// combined.
func New(opts Options) (*Filter, error) {
	f := &Filter{}
	var err error

	if f.include, err = appendRules(f.include, targetHeader, opts.IncludeHeader); err != nil {
		return nil, fmt.Errorf("include-header: %w", err)
	}
	if f.include, err = appendRules(f.include, targetBody, opts.IncludeBody); err != nil {
		return nil, fmt.Errorf("include-body: %w", err)
	}
	if f.exclude, err = appendRules(f.exclude, targetHeader, opts.ExcludeHeader); err != nil {
		return nil, fmt.Errorf("exclude-header: %w", err)
	}
	if f.exclude, err = appendRules(f.exclude, targetBody, opts.ExcludeBody); err != nil {
		return nil, fmt.Errorf("exclude-body: %w", err)
	}

	if len(f.include) > 0 && len(f.exclude) > 0 {
		return nil, ErrModeConflict
	}
	return f, nil
}

// Allows reports whether msg passes the filter. A nil filter allows
// everything.
func (f *Filter) Allows(msg model.Message) bool {
	if f == nil {
		return true
	}
	if len(f.include) > 0 {
		return anyMatch(f.include, msg)
	}
	return !anyMatch(f.exclude, msg)
}

// Active reports whether any rule is configured.
func (f *Filter) Active() bool {
	return f != nil && len(f.include)+len(f.exclude) > 0
}

func appendRules(rules []rule, t target, patterns []string) ([]rule, error) {
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", pattern, err)
		}
		rules = append(rules, rule{target: t, pattern: re})
	}
	return rules, nil
}

func anyMatch(rules []rule, msg model.Message) bool {
	for _, r := range rules {
		if r.matches(msg) {
			return true
		}
	}
	return false
}
