package urltrans

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oonrumail/bearerbox/internal/msg"
)

func TestSelectRoutingKeywordExpandsURL(t *testing.T) {
	l := NewList()
	l.Add(&Translation{Keyword: "info", Type: TypeGetURL, Pattern: "http://x/%s", Args: 1})

	m := msg.NewSMS(msg.SMS{MsgData: []byte("info weather")})
	res, ok := l.Select(m)
	require.True(t, ok)
	require.Equal(t, "http://x/%s", res.Translation.Pattern)

	got := Expand(res.Translation, m, "", "")
	require.Equal(t, "http://x/weather", got)
}

func TestSelectBlackListShunt(t *testing.T) {
	l := NewList()
	l.Add(&Translation{Keyword: "play", Type: TypeGetURL, Pattern: "http://regular/%s", Args: 0, CatchAll: true, DenyList: []string{"12345"}})
	l.Add(&Translation{Keyword: ReservedBlackList, Type: TypeText, Pattern: "blocked"})

	m := msg.NewSMS(msg.SMS{Sender: "12345", MsgData: []byte("play")})
	res, ok := l.Select(m)
	require.True(t, ok)
	require.Equal(t, ReservedBlackList, res.Translation.Keyword)
}

func TestSelectFallsBackToDefault(t *testing.T) {
	l := NewList()
	l.Add(&Translation{Keyword: DefaultKeyword, Type: TypeText, Pattern: "fallback", CatchAll: true})

	m := msg.NewSMS(msg.SMS{MsgData: []byte("unknownkeyword foo")})
	res, ok := l.Select(m)
	require.True(t, ok)
	require.Equal(t, DefaultKeyword, res.Translation.Keyword)
}

func TestSelectAcceptedSMSCFilterExcludesCandidate(t *testing.T) {
	l := NewList()
	l.Add(&Translation{Keyword: "info", Type: TypeText, Pattern: "a", CatchAll: true, AcceptedSMSC: []string{"smsc-a"}})

	m := msg.NewSMS(msg.SMS{MsgData: []byte("info"), SMSCID: "smsc-b"})
	_, ok := l.Select(m)
	require.False(t, ok)
}

func TestSelectArgCountPolicyFallsBackToCatchAll(t *testing.T) {
	l := NewList()
	l.Add(&Translation{Keyword: "x", Type: TypeText, Pattern: "one-arg", Args: 1})
	l.Add(&Translation{Keyword: "x", Type: TypeText, Pattern: "catch-all", CatchAll: true})

	m := msg.NewSMS(msg.SMS{MsgData: []byte("x a b")})
	res, ok := l.Select(m)
	require.True(t, ok)
	require.Equal(t, "catch-all", res.Translation.Pattern)
}

func TestSelectNoMatchReturnsFalse(t *testing.T) {
	l := NewList()
	m := msg.NewSMS(msg.SMS{MsgData: []byte("nothing configured")})
	_, ok := l.Select(m)
	require.False(t, ok)
}

func TestFindUsername(t *testing.T) {
	l := NewList()
	l.Add(&Translation{Type: TypeSendSMS, Username: "alice", Password: "secret"})

	t2, ok := l.FindUsername("alice")
	require.True(t, ok)
	require.Equal(t, "secret", t2.Password)

	_, ok = l.FindUsername("bob")
	require.False(t, ok)
}
