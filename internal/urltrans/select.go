package urltrans

import (
	"strings"

	"github.com/oonrumail/bearerbox/internal/msg"
)

// Result is the outcome of Select: the chosen Translation plus the split
// message words it was matched against (word 0 is the keyword).
type Result struct {
	Translation *Translation
	Words       []string
}

// Select runs the inbound-SMS routing algorithm: split msgdata into
// words, take word 0 as the keyword, and walk that keyword's candidates
// in definition order applying accepted-smsc, sender/receiver prefix,
// and white/black list filters before the argument-count policy. If no
// candidate is accepted but one was rejected specifically by its black
// list, the reserved "black-list" entry is selected; otherwise the
// "default" keyword's candidates are tried the same way.
func (l *List) Select(m *msg.Msg) (*Result, bool) {
	if m.SMS == nil {
		return nil, false
	}
	words := strings.Fields(string(m.SMS.MsgData))
	if len(words) == 0 {
		return nil, false
	}
	keyword := words[0]
	wordsAfter := len(words) - 1

	if t, blackListed := l.selectAmong(l.Candidates(keyword), m, wordsAfter); t != nil {
		return &Result{Translation: t, Words: words}, true
	} else if blackListed {
		if bl, ok := l.blackListEntry(keyword); ok {
			return &Result{Translation: bl, Words: words}, true
		}
	}

	if t, blackListed := l.selectAmong(l.Candidates(DefaultKeyword), m, wordsAfter); t != nil {
		return &Result{Translation: t, Words: words}, true
	} else if blackListed {
		if bl, ok := l.blackListEntry(DefaultKeyword); ok {
			return &Result{Translation: bl, Words: words}, true
		}
	}

	return nil, false
}

// selectAmong applies the filter chain to each candidate in order,
// returning the first fully-accepted one. blackListed reports whether
// any candidate was rejected specifically by its black list, so the
// caller can shunt to the reserved black-list entry instead of falling
// through silently.
func (l *List) selectAmong(candidates []*Translation, m *msg.Msg, wordsAfter int) (*Translation, bool) {
	blackListed := false
	for _, t := range candidates {
		if t.Keyword == ReservedBlackList {
			continue
		}
		if !acceptedSMSC(t, m.SMS.SMSCID) {
			continue
		}
		if !prefixAllowed(t.AllowedPrefix, t.DeniedPrefix, m.SMS.Sender) {
			continue
		}
		if !prefixAllowed(t.AllowedRecvPrefix, t.DeniedRecvPrefix, m.SMS.Receiver) {
			continue
		}
		if len(t.WhiteList) > 0 && !onListMatch(t.WhiteList, m.SMS.Sender) {
			continue
		}
		if onListMatch(t.DenyList, m.SMS.Sender) {
			blackListed = true
			continue
		}
		if !t.argCountMatches(wordsAfter) {
			continue
		}
		return t, blackListed
	}
	return nil, blackListed
}

func (l *List) blackListEntry(keyword string) (*Translation, bool) {
	for _, t := range l.Candidates(keyword) {
		if t.Keyword == ReservedBlackList {
			return t, true
		}
	}
	for _, t := range l.Candidates(ReservedBlackList) {
		return t, true
	}
	return nil, false
}

func acceptedSMSC(t *Translation, smscID string) bool {
	if len(t.AcceptedSMSC) == 0 {
		return true
	}
	for _, id := range t.AcceptedSMSC {
		if id == smscID {
			return true
		}
	}
	return false
}

// prefixAllowed admits addr when a non-empty allowed list has a prefix
// matching it. The denied list is consulted only when no allowed list is
// set, and then rejects addr on a matching prefix.
func prefixAllowed(allowed, denied []string, addr string) bool {
	if len(allowed) > 0 {
		for _, p := range allowed {
			if strings.HasPrefix(addr, p) {
				return true
			}
		}
		return false
	}
	for _, p := range denied {
		if strings.HasPrefix(addr, p) {
			return false
		}
	}
	return true
}

func onListMatch(list []string, addr string) bool {
	for _, n := range list {
		if n == addr {
			return true
		}
	}
	return false
}
