package urltrans

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oonrumail/bearerbox/internal/msg"
)

func TestExpandPositionalAndFieldEscapes(t *testing.T) {
	trans := &Translation{Pattern: "%k/%s/%p/%P/%n"}
	m := msg.NewSMS(msg.SMS{Sender: "12345", Receiver: "67890", MsgData: []byte("cmd hello")})

	got := Expand(trans, m, "myservice", "")
	require.Equal(t, "cmd/hello/67890/12345/myservice", got)
}

func TestExpandRemainingAndAllWords(t *testing.T) {
	trans := &Translation{Pattern: "%r|%a"}
	m := msg.NewSMS(msg.SMS{MsgData: []byte("cmd one two three")})

	got := Expand(trans, m, "", "")
	require.Equal(t, "one+two+three|cmd+one+two+three", got)
}

func TestExpandLiteralPercent(t *testing.T) {
	trans := &Translation{Pattern: "100%%done"}
	m := msg.NewSMS(msg.SMS{MsgData: []byte("cmd")})

	require.Equal(t, "100%done", Expand(trans, m, "", ""))
}

func TestExpandUnknownEscapeKeptLiteral(t *testing.T) {
	trans := &Translation{Pattern: "%z"}
	m := msg.NewSMS(msg.SMS{MsgData: []byte("cmd")})

	require.Equal(t, "%z", Expand(trans, m, "", ""))
}

func TestExpandInternationalRewrite(t *testing.T) {
	trans := &Translation{Pattern: "%Q"}
	m := msg.NewSMS(msg.SMS{Sender: "00358401234567", MsgData: []byte("cmd")})

	require.Equal(t, "%2B358401234567", Expand(trans, m, "", ""))
}

func TestExpandDLRFields(t *testing.T) {
	trans := &Translation{Pattern: "%i/%I/%d/%A", DLRURL: "http://fallback/"}
	m := msg.NewSMS(msg.SMS{SMSCID: "smsc1", DLRMask: msg.DLRMaskSuccess, DLRReplyText: "id:1 stat:DELIVRD"})

	got := Expand(trans, m, "", "internal-42")
	require.Equal(t, "smsc1/internal-42/1/id%3A1+stat%3ADELIVRD", got)
}

func TestDLRPatternPrefersMessageOverTranslation(t *testing.T) {
	trans := &Translation{DLRURL: "http://translation/"}
	m := msg.NewSMS(msg.SMS{DLRURL: "http://message/"})
	require.Equal(t, "http://message/", DLRPattern(trans, m))

	m2 := msg.NewSMS(msg.SMS{})
	require.Equal(t, "http://translation/", DLRPattern(trans, m2))
}

func TestStripKeywordRemovesFirstWordAndWhitespaceRun(t *testing.T) {
	got := StripKeyword([]byte("cmd   rest of message"))
	require.Equal(t, "rest of message", string(got))
}

func TestStripKeywordNoWhitespaceReturnsNil(t *testing.T) {
	got := StripKeyword([]byte("onlyword"))
	require.Nil(t, got)
}
