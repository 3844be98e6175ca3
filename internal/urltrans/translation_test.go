package urltrans

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindByServiceDefaultsToKeyword(t *testing.T) {
	l := NewList()
	l.Add(&Translation{Keyword: "info", Type: TypeGetURL, Pattern: "http://x/%s", DLRURL: "http://dlr/info"})

	tr, ok := l.FindByService("info")
	require.True(t, ok)
	require.Equal(t, "http://dlr/info", tr.DLRURL)
}

func TestFindByServiceUsesExplicitName(t *testing.T) {
	l := NewList()
	l.Add(&Translation{Keyword: "info", Name: "weather-service", Type: TypeGetURL, Pattern: "http://x/%s"})

	_, ok := l.FindByService("info")
	require.False(t, ok)

	tr, ok := l.FindByService("weather-service")
	require.True(t, ok)
	require.Equal(t, "info", tr.Keyword)
}

func TestFindByServiceDefaultsToUsernameForSendSMS(t *testing.T) {
	l := NewList()
	l.Add(&Translation{Type: TypeSendSMS, Username: "alice", DLRURL: "http://dlr/alice"})

	tr, ok := l.FindByService("alice")
	require.True(t, ok)
	require.Equal(t, "http://dlr/alice", tr.DLRURL)
}

func TestFindByServiceEmptyReturnsNotFound(t *testing.T) {
	l := NewList()
	_, ok := l.FindByService("")
	require.False(t, ok)
}
