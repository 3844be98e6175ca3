// Package urltrans implements the keyword- and default-based router that
// maps an inbound SMS to a service invocation (GET/POST url, POST xml,
// file, text, execute) or, for the HTTP sendsms frontend, authenticates a
// username against a configured account.
package urltrans

import (
	"strconv"
	"strings"
)

// Type is the kind of service a translation invokes.
type Type int

const (
	TypeGetURL Type = iota
	TypePostURL
	TypePostXML
	TypeFile
	TypeText
	TypeExecute
	TypeSendSMS
)

// ReservedBlackList is the keyword a selection falls back to when a
// candidate is rejected specifically by its sender black list.
const ReservedBlackList = "black-list"

// DefaultKeyword is tried when no entry matches the message's own keyword.
const DefaultKeyword = "default"

// Translation is one routing entry: a keyword (or, for sendsms-user
// entries, a username) mapped to a service invocation pattern plus the
// admission filters and reply-shaping options that govern it.
type Translation struct {
	Keyword string
	Aliases []string
	Name    string // group name, used for ordering/logging only

	Type    Type
	Pattern string // URL, file path, fixed text, or shell command

	Prefix string
	Suffix string

	FakedSender   string
	DefaultSender string

	MaxMessages    int
	Concatenation  bool
	SplitChars     string
	SplitSuffix    string
	OmitEmpty      bool
	Header         string
	Footer         string
	StripKeyword   bool

	AcceptedSMSC []string

	AllowedPrefix     []string
	DeniedPrefix      []string
	AllowedRecvPrefix []string
	DeniedRecvPrefix  []string
	WhiteList         []string
	DenyList          []string

	Args          int
	HasCatchAllArg bool
	CatchAll      bool

	DLRURL string

	// sendsms-user fields
	Username     string
	Password     string
	ForcedSMSC   string
	DefaultSMSC  string
	AllowIP      []string
	DenyIP       []string
}

// List holds every configured Translation, indexed for the two lookup
// paths the core needs: by keyword (many translations share a keyword,
// disambiguated by filters/arg count) and by username (at most one).
type List struct {
	byKeyword map[string][]*Translation
	byName    map[string]*Translation
	byService map[string]*Translation
	ordered   []*Translation
}

// NewList builds an empty List.
func NewList() *List {
	return &List{
		byKeyword: make(map[string][]*Translation),
		byName:    make(map[string]*Translation),
		byService: make(map[string]*Translation),
	}
}

// Add registers t under its keyword (and every alias) or, for
// TypeSendSMS, under its username. Definition order within a keyword is
// preserved: later calls append. t is also indexed by its service name
// (the "name" config key, defaulting to the keyword or username), the
// lookup FindByService uses to recover the translation a report's
// originating submission was matched against.
func (l *List) Add(t *Translation) {
	l.ordered = append(l.ordered, t)

	serviceName := t.Name
	if t.Type == TypeSendSMS {
		l.byName[t.Username] = t
		if serviceName == "" {
			serviceName = t.Username
		}
	} else {
		if serviceName == "" {
			serviceName = t.Keyword
		}
		keys := append([]string{t.Keyword}, t.Aliases...)
		for _, k := range keys {
			k = strings.ToLower(strings.TrimSpace(k))
			if k == "" {
				continue
			}
			l.byKeyword[k] = append(l.byKeyword[k], t)
		}
	}
	if serviceName != "" {
		if _, exists := l.byService[serviceName]; !exists {
			l.byService[serviceName] = t
		}
	}
}

// Candidates returns every translation registered under keyword, in
// definition order.
func (l *List) Candidates(keyword string) []*Translation {
	return l.byKeyword[strings.ToLower(keyword)]
}

// FindUsername looks up a sendsms-user translation by username.
func (l *List) FindUsername(name string) (*Translation, bool) {
	t, ok := l.byName[name]
	return t, ok
}

// FindByService looks up the translation registered under the given
// service name, the way a delivery report's dlr_url fallback is resolved
// against the translation the original submission's "service" field
// named, rather than by re-parsing the report text as a keyword.
func (l *List) FindByService(service string) (*Translation, bool) {
	if service == "" {
		return nil, false
	}
	t, ok := l.byService[service]
	return t, ok
}

// argCountMatches implements the args==nwords-1 / catch_all /
// has_catchall_arg policy from the selection algorithm, given the number
// of words following the keyword.
func (t *Translation) argCountMatches(wordsAfterKeyword int) bool {
	if t.CatchAll {
		return true
	}
	if t.Args == wordsAfterKeyword {
		return true
	}
	if t.HasCatchAllArg && wordsAfterKeyword >= t.Args {
		return true
	}
	return false
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
