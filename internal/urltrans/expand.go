package urltrans

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oonrumail/bearerbox/internal/msg"
)

// charsetName maps a coding bucket to the charset name used by %C,
// mirroring Kannel's own coding-to-charset-name table.
func charsetName(coding msg.Coding) string {
	switch coding {
	case msg.Coding7Bit:
		return "ISO-8859-1"
	case msg.Coding8Bit:
		return "8-BIT"
	case msg.CodingUCS2:
		return "UTF16-BE"
	default:
		return ""
	}
}

// scanner walks a pattern's %X escapes against a fixed word cursor, one
// pass, emitting URL-encoded field substitutions to a buffer. It does not
// share any machinery with a general-purpose templating engine: the
// escape table is closed and small enough that a switch is clearer.
type scanner struct {
	words    []string // words[0] is the keyword
	next     int      // next positional word index for %s/%S
	m        *msg.Msg
	service  string
	internal string // internal message id for %I
}

// Expand renders t's pattern against m, following the closed %X escape
// table. service and internalID feed %n and %I respectively.
func Expand(t *Translation, m *msg.Msg, service, internalID string) string {
	return ExpandPattern(t.Pattern, m, service, internalID)
}

// ExpandPattern renders an arbitrary pattern against m, following the
// same %X escape table as Expand. Used directly when the pattern to
// render isn't a translation's own (e.g. a report's dlr_url).
func ExpandPattern(pattern string, m *msg.Msg, service, internalID string) string {
	var words []string
	if m.SMS != nil {
		words = strings.Fields(string(m.SMS.MsgData))
	}
	s := &scanner{words: words, next: 1, m: m, service: service, internal: internalID}

	var buf strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '%' || i+1 >= len(pattern) {
			buf.WriteByte(c)
			continue
		}
		i++
		esc := pattern[i]
		buf.WriteString(s.expand(esc))
	}

	return buf.String()
}

func (s *scanner) word(i int) string {
	if i < 0 || i >= len(s.words) {
		return ""
	}
	return s.words[i]
}

func (s *scanner) expand(esc byte) string {
	switch esc {
	case 'k':
		return urlEncode(s.word(0))
	case 's':
		w := s.word(s.next)
		s.next++
		return urlEncode(w)
	case 'S':
		w := s.word(s.next)
		s.next++
		return urlEncode(strings.ReplaceAll(w, "*", "~"))
	case 'r':
		if s.next >= len(s.words) {
			return ""
		}
		// QueryEscape renders the joining spaces as '+'.
		return urlEncode(strings.Join(s.words[s.next:], " "))
	case 'a':
		return urlEncode(strings.Join(s.words, " "))
	case 'b':
		if s.m.SMS == nil {
			return ""
		}
		return urlEncode(string(s.m.SMS.MsgData))
	case 'p':
		return urlEncode(s.smsField(func(sms *msg.SMS) string { return sms.Receiver }))
	case 'P':
		return urlEncode(s.smsField(func(sms *msg.SMS) string { return sms.Sender }))
	case 'q':
		return rewriteIntl(s.smsField(func(sms *msg.SMS) string { return sms.Receiver }))
	case 'Q':
		return rewriteIntl(s.smsField(func(sms *msg.SMS) string { return sms.Sender }))
	case 't':
		return s.gmTime().Format("2006-01-02+15:04:05")
	case 'T':
		return strconv.FormatInt(s.gmTime().Unix(), 10)
	case 'i':
		if s.m.SMS == nil {
			return ""
		}
		return urlEncode(s.m.SMS.SMSCID)
	case 'I':
		return urlEncode(s.internal)
	case 'n':
		return urlEncode(s.service)
	case 'd':
		if s.m.SMS == nil {
			return "0"
		}
		return strconv.Itoa(int(s.m.SMS.DLRMask))
	case 'A':
		if s.m.SMS == nil {
			return ""
		}
		return urlEncode(s.m.SMS.DLRReplyText)
	case 'c':
		if s.m.SMS == nil {
			return "0"
		}
		return strconv.Itoa(int(s.m.SMS.Coding))
	case 'C':
		if s.m.SMS == nil {
			return ""
		}
		return charsetName(s.m.SMS.Coding)
	case 'u':
		if s.m.SMS == nil {
			return ""
		}
		return urlEncode(string(s.m.SMS.UDHData))
	case 'B':
		if s.m.SMS == nil {
			return ""
		}
		return urlEncode(s.m.SMS.BInfo)
	case '%':
		return "%"
	default:
		return "%" + string(esc)
	}
}

func (s *scanner) smsField(f func(*msg.SMS) string) string {
	if s.m.SMS == nil {
		return ""
	}
	return f(s.m.SMS)
}

func (s *scanner) gmTime() time.Time {
	if !s.m.Time.IsZero() {
		return s.m.Time.UTC()
	}
	return time.Now().UTC()
}

// rewriteIntl rewrites a leading "00" international prefix to a
// URL-encoded "+" before encoding the rest of the address.
func rewriteIntl(addr string) string {
	if strings.HasPrefix(addr, "00") {
		return "%2B" + urlEncode(addr[2:])
	}
	return urlEncode(addr)
}

func urlEncode(s string) string {
	return url.QueryEscape(s)
}

// StripKeyword removes the leading word and the whitespace run following
// it from data, for building a post-url/post-xml body when the
// translation has strip_keyword set.
func StripKeyword(data []byte) []byte {
	s := string(data)
	i := strings.IndexAny(s, " \t\n\r")
	if i < 0 {
		return nil
	}
	rest := strings.TrimLeft(s[i:], " \t\n\r")
	return []byte(rest)
}

// DLRPattern picks the pattern to expand for a report-type Msg: the
// message's own dlr_url if set, else the translation's (t may be nil when
// no translation could be recovered for the report, in which case only
// the message's own dlr_url is available).
func DLRPattern(t *Translation, m *msg.Msg) string {
	if m.SMS != nil && m.SMS.DLRURL != "" {
		return m.SMS.DLRURL
	}
	if t == nil {
		return ""
	}
	return t.DLRURL
}
