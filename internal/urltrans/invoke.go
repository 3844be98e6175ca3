package urltrans

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/oonrumail/bearerbox/internal/msg"
)

// InvokeResult is the reply body a service produced, to be turned back
// into one or more MT messages by the caller (split per MaxMessages/
// SplitChars, wrapped with Header/Footer, subject to OmitEmpty).
type InvokeResult struct {
	Body       string
	StatusCode int
}

// Invoke resolves t's pattern against m and performs the service call
// the translation's Type names: an HTTP GET/POST for get-url/post-url/
// post-xml, a file read for file, the pattern itself for text, or a
// subprocess for execute.
func Invoke(ctx context.Context, client *http.Client, t *Translation, m *msg.Msg, service, internalID string) (*InvokeResult, error) {
	pattern := Expand(t, m, service, internalID)

	switch t.Type {
	case TypeText:
		return &InvokeResult{Body: pattern, StatusCode: http.StatusOK}, nil
	case TypeFile:
		return invokeFile(pattern)
	case TypeGetURL:
		return invokeHTTP(ctx, client, http.MethodGet, pattern, "", "")
	case TypePostURL:
		body := postBody(t, m)
		return invokeHTTP(ctx, client, http.MethodPost, pattern, "application/octet-stream", body)
	case TypePostXML:
		body := buildXML(m)
		return invokeHTTP(ctx, client, http.MethodPost, pattern, "text/xml", body)
	case TypeExecute:
		return invokeExec(ctx, pattern)
	default:
		return nil, fmt.Errorf("urltrans: translation %q has no invocable type", t.Keyword)
	}
}

// InvokeDLR expands pattern (from DLRPattern) against a report-type m and
// performs the GET the original gateway's delivery-report notification
// always is, regardless of the translation type the originating
// submission used. An empty pattern (no dlr_url configured anywhere)
// means there's nothing to invoke.
func InvokeDLR(ctx context.Context, client *http.Client, pattern string, m *msg.Msg) (*InvokeResult, error) {
	if pattern == "" {
		return nil, nil
	}
	target := ExpandPattern(pattern, m, "", "")
	return invokeHTTP(ctx, client, http.MethodGet, target, "", "")
}

func postBody(t *Translation, m *msg.Msg) string {
	if m.SMS == nil {
		return ""
	}
	data := m.SMS.MsgData
	if t.StripKeyword {
		data = StripKeyword(data)
	}
	return string(data)
}

func invokeFile(path string) (*InvokeResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("urltrans: read file %q: %w", path, err)
	}
	return &InvokeResult{Body: string(data), StatusCode: http.StatusOK}, nil
}

func invokeHTTP(ctx context.Context, client *http.Client, method, target, contentType, body string) (*InvokeResult, error) {
	if client == nil {
		client = http.DefaultClient
	}
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("urltrans: build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("urltrans: request %s: %w", target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("urltrans: read response: %w", err)
	}
	return &InvokeResult{Body: string(data), StatusCode: resp.StatusCode}, nil
}

// invokeExec runs pattern as a shell command line, the same "execute"
// contract the original gateway exposes for local services.
func invokeExec(ctx context.Context, pattern string) (*InvokeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", pattern)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("urltrans: exec %q: %w", pattern, err)
	}
	return &InvokeResult{Body: stdout.String(), StatusCode: http.StatusOK}, nil
}

func buildXML(m *msg.Msg) string {
	if m.SMS == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?>` + "\n<submit>\n")
	b.WriteString("  <source><number>" + xmlEscape(m.SMS.Sender) + "</number></source>\n")
	b.WriteString("  <destination><number>" + xmlEscape(m.SMS.Receiver) + "</number></destination>\n")
	b.WriteString("  <msg><text>" + xmlEscape(string(m.SMS.MsgData)) + "</text></msg>\n")
	b.WriteString("</submit>\n")
	return b.String()
}

func xmlEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
