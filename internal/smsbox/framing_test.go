package smsbox

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oonrumail/bearerbox/internal/msg"
)

func TestWriteReadFramedRoundTrip(t *testing.T) {
	m := msg.NewSMS(msg.SMS{Sender: "1234", Receiver: "5678", MsgData: []byte("hello")})

	var buf bytes.Buffer
	require.NoError(t, WriteFramed(&buf, m))

	got, err := ReadFramed(&buf)
	require.NoError(t, err)
	require.Equal(t, m.SMS.Sender, got.SMS.Sender)
	require.Equal(t, m.SMS.Receiver, got.SMS.Receiver)
	require.Equal(t, m.SMS.MsgData, got.SMS.MsgData)
}

func TestReadFramedRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], MaxFrameLen+1)
	buf.Write(lenBuf[:])

	_, err := ReadFramed(&buf)
	require.Error(t, err)
}

func TestReadFramedPropagatesShortReadAsError(t *testing.T) {
	var buf bytes.Buffer
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], 10)
	buf.Write(lenBuf[:])
	buf.Write([]byte{1, 2, 3})

	_, err := ReadFramed(&buf)
	require.Error(t, err)
}
