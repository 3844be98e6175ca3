package urltrans

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oonrumail/bearerbox/internal/msg"
)

func TestInvokeTextReturnsExpandedPattern(t *testing.T) {
	trans := &Translation{Type: TypeText, Pattern: "hello %k"}
	m := msg.NewSMS(msg.SMS{MsgData: []byte("cmd")})

	res, err := Invoke(context.Background(), nil, trans, m, "", "")
	require.NoError(t, err)
	require.Equal(t, "hello cmd", res.Body)
}

func TestInvokeFileReadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reply.txt")
	require.NoError(t, os.WriteFile(path, []byte("file contents"), 0o644))

	trans := &Translation{Type: TypeFile, Pattern: path}
	m := msg.NewSMS(msg.SMS{MsgData: []byte("cmd")})

	res, err := Invoke(context.Background(), nil, trans, m, "", "")
	require.NoError(t, err)
	require.Equal(t, "file contents", res.Body)
}

func TestInvokeGetURLHitsExpandedEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/weather", r.URL.Path)
		w.Write([]byte("sunny"))
	}))
	defer srv.Close()

	trans := &Translation{Type: TypeGetURL, Pattern: srv.URL + "/%s", Args: 1}
	m := msg.NewSMS(msg.SMS{MsgData: []byte("info weather")})

	res, err := Invoke(context.Background(), srv.Client(), trans, m, "", "")
	require.NoError(t, err)
	require.Equal(t, "sunny", res.Body)
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestInvokePostURLStripsKeywordFromBody(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 4096)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
	}))
	defer srv.Close()

	trans := &Translation{Type: TypePostURL, Pattern: srv.URL, StripKeyword: true}
	m := msg.NewSMS(msg.SMS{MsgData: []byte("cmd rest of body")})

	require.Equal(t, "rest of body", postBody(trans, m))

	res, err := Invoke(context.Background(), srv.Client(), trans, m, "", "")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "rest of body", gotBody)
}

func TestInvokePostXMLBuildsSubmitDocument(t *testing.T) {
	var gotContentType string
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		buf := make([]byte, 4096)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
	}))
	defer srv.Close()

	trans := &Translation{Type: TypePostXML, Pattern: srv.URL}
	m := msg.NewSMS(msg.SMS{Sender: "1", Receiver: "2", MsgData: []byte("hello")})

	_, err := Invoke(context.Background(), srv.Client(), trans, m, "", "")
	require.NoError(t, err)
	require.Equal(t, "text/xml", gotContentType)
	require.Contains(t, gotBody, "<source><number>1</number></source>")
}

func TestInvokeExecuteRunsShellCommand(t *testing.T) {
	trans := &Translation{Type: TypeExecute, Pattern: "echo -n hi"}
	m := msg.NewSMS(msg.SMS{MsgData: []byte("cmd")})

	res, err := Invoke(context.Background(), nil, trans, m, "", "")
	require.NoError(t, err)
	require.Equal(t, "hi", res.Body)
}

func TestXMLEscapeHandlesReservedCharacters(t *testing.T) {
	require.Equal(t, "a &amp; b &lt;c&gt;", xmlEscape("a & b <c>"))
}

func TestInvokeDLREmptyPatternIsNoop(t *testing.T) {
	m := msg.NewSMS(msg.SMS{SMSType: msg.SMSTypeReport})
	res, err := InvokeDLR(context.Background(), nil, "", m)
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestInvokeDLRGetsExpandedPattern(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	m := msg.NewSMS(msg.SMS{
		SMSType:      msg.SMSTypeReport,
		DLRMask:      int32(msg.DLRStatusSuccess),
		DLRReplyText: "id:m1 stat:DELIVRD err:0",
	})

	res, err := InvokeDLR(context.Background(), srv.Client(), srv.URL+"?status=%d", m)
	require.NoError(t, err)
	require.Equal(t, "ok", res.Body)
	require.Equal(t, "status=1", gotQuery)
}
