package smscconn

import (
	"regexp"
	"strings"
)

// stringFilter implements one allow/deny/preferred list: either a plain
// semicolon-separated list of exact values, or (when regex is non-nil) a
// single compiled regular expression. At most one representation is set
// per filter, matching the config grammar's "either list or -regex" keys.
type stringFilter struct {
	values []string
	regex  *regexp.Regexp
}

func newStringFilter(list string, pattern string) (stringFilter, error) {
	f := stringFilter{}
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return f, err
		}
		f.regex = re
		return f, nil
	}
	if list != "" {
		for _, v := range strings.Split(list, ";") {
			v = strings.TrimSpace(v)
			if v != "" {
				f.values = append(f.values, v)
			}
		}
	}
	return f, nil
}

// set reports whether the filter has any list or regex configured.
func (f stringFilter) set() bool {
	return f.regex != nil || len(f.values) > 0
}

// match reports whether s matches this filter. An unset filter never
// matches; callers check set() first when that distinction matters.
func (f stringFilter) match(s string) bool {
	if f.regex != nil {
		return f.regex.MatchString(s)
	}
	for _, v := range f.values {
		if v == s {
			return true
		}
	}
	return false
}

// prefixFilter is like stringFilter but values are number prefixes matched
// against the start of the receiver, not exact values.
type prefixFilter struct {
	prefixes []string
	regex    *regexp.Regexp
}

func newPrefixFilter(list string, pattern string) (prefixFilter, error) {
	f := prefixFilter{}
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return f, err
		}
		f.regex = re
		return f, nil
	}
	if list != "" {
		for _, v := range strings.Split(list, ";") {
			v = strings.TrimSpace(v)
			if v != "" {
				f.prefixes = append(f.prefixes, v)
			}
		}
	}
	return f, nil
}

func (f prefixFilter) set() bool {
	return f.regex != nil || len(f.prefixes) > 0
}

func (f prefixFilter) match(receiver string) bool {
	if f.regex != nil {
		return f.regex.MatchString(receiver)
	}
	for _, p := range f.prefixes {
		if strings.HasPrefix(receiver, p) {
			return true
		}
	}
	return false
}

// Filters bundles every routing predicate spec.md §4.2 names, evaluated
// before a message is handed to a connection's driver.
type Filters struct {
	AllowedSMSCID  stringFilter
	DeniedSMSCID   stringFilter
	AllowedPrefix  prefixFilter
	DeniedPrefix   prefixFilter
	PreferredSMSCID stringFilter
	PreferredPrefix prefixFilter

	// UnifiedPrefix groups equivalent receiver prefixes; group[0] is the
	// canonical replacement for group[1:].
	UnifiedPrefix [][]string
}

// FilterConfig is the plain-string configuration a Filters is built from,
// mirroring the closed key set of the `smsc` config group.
type FilterConfig struct {
	AllowedSMSCID       string
	AllowedSMSCIDRegex  string
	DeniedSMSCID        string
	DeniedSMSCIDRegex   string
	AllowedPrefix       string
	AllowedPrefixRegex  string
	DeniedPrefix        string
	DeniedPrefixRegex   string
	PreferredSMSCID      string
	PreferredSMSCIDRegex string
	PreferredPrefix      string
	PreferredPrefixRegex string
	UnifiedPrefix        string
}

// NewFilters compiles a FilterConfig into a Filters value.
func NewFilters(cfg FilterConfig) (*Filters, error) {
	f := &Filters{}
	var err error
	if f.AllowedSMSCID, err = newStringFilter(cfg.AllowedSMSCID, cfg.AllowedSMSCIDRegex); err != nil {
		return nil, err
	}
	if f.DeniedSMSCID, err = newStringFilter(cfg.DeniedSMSCID, cfg.DeniedSMSCIDRegex); err != nil {
		return nil, err
	}
	if f.AllowedPrefix, err = newPrefixFilter(cfg.AllowedPrefix, cfg.AllowedPrefixRegex); err != nil {
		return nil, err
	}
	if f.DeniedPrefix, err = newPrefixFilter(cfg.DeniedPrefix, cfg.DeniedPrefixRegex); err != nil {
		return nil, err
	}
	if f.PreferredSMSCID, err = newStringFilter(cfg.PreferredSMSCID, cfg.PreferredSMSCIDRegex); err != nil {
		return nil, err
	}
	if f.PreferredPrefix, err = newPrefixFilter(cfg.PreferredPrefix, cfg.PreferredPrefixRegex); err != nil {
		return nil, err
	}
	f.UnifiedPrefix = parseUnifiedPrefix(cfg.UnifiedPrefix)
	return f, nil
}

func parseUnifiedPrefix(spec string) [][]string {
	if spec == "" {
		return nil
	}
	var groups [][]string
	for _, g := range strings.Split(spec, ";") {
		var entries []string
		for _, e := range strings.Split(g, ",") {
			e = strings.TrimSpace(e)
			if e != "" {
				entries = append(entries, e)
			}
		}
		if len(entries) > 0 {
			groups = append(groups, entries)
		}
	}
	return groups
}

// Allows applies filters 1-5 of spec.md §4.2: smsc-id admission first,
// then receiver-prefix admission. receiver is the already-normalized
// destination address.
func (f *Filters) Allows(smscID, receiver string) bool {
	if f.AllowedSMSCID.set() {
		if !f.AllowedSMSCID.match(smscID) {
			return false
		}
	} else if f.DeniedSMSCID.set() {
		if f.DeniedSMSCID.match(smscID) {
			return false
		}
	}

	allowedSet := f.AllowedPrefix.set()
	deniedSet := f.DeniedPrefix.set()
	switch {
	case allowedSet && !deniedSet:
		if !f.AllowedPrefix.match(receiver) {
			return false
		}
	case deniedSet && !allowedSet:
		if f.DeniedPrefix.match(receiver) {
			return false
		}
	case allowedSet && deniedSet:
		if !f.AllowedPrefix.match(receiver) && f.DeniedPrefix.match(receiver) {
			return false
		}
	}
	return true
}

// Preferred reports whether a usable connection should be treated as a
// preferred candidate for this message (filter 6).
func (f *Filters) Preferred(smscID, receiver string) bool {
	if f.PreferredSMSCID.set() && f.PreferredSMSCID.match(smscID) {
		return true
	}
	if f.PreferredPrefix.set() && f.PreferredPrefix.match(receiver) {
		return true
	}
	return false
}

// NormalizeReceiver rewrites a leading equivalent prefix in receiver to
// its group's canonical form, per spec.md §4.2's unified-prefix rule.
func (f *Filters) NormalizeReceiver(receiver string) string {
	for _, group := range f.UnifiedPrefix {
		if len(group) < 2 {
			continue
		}
		canonical := group[0]
		for _, equiv := range group[1:] {
			if strings.HasPrefix(receiver, equiv) {
				return canonical + strings.TrimPrefix(receiver, equiv)
			}
		}
	}
	return receiver
}
