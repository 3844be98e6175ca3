package smpp

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/oonrumail/bearerbox/internal/dlrstore"
	"github.com/oonrumail/bearerbox/internal/msg"
	"github.com/oonrumail/bearerbox/internal/smpp/pdu"
	"github.com/oonrumail/bearerbox/internal/smscconn"
)

func newTestDriver(t *testing.T, bindType BindType, store dlrstore.Store) *Driver {
	cfg := DefaultConfig()
	cfg.BindType = bindType
	cfg.SystemID = "test"
	cfg.Password = "secret"
	cfg.SMSCID = "smsc1"
	cfg.EnquireLinkInterval = 50 * time.Millisecond
	cfg.ConnectionTimeout = 500 * time.Millisecond
	cfg.MaxPendingSubmits = 5
	cfg.WaitAck = 150 * time.Millisecond
	cfg.ThrottlingSleepTime = 10 * time.Millisecond
	return New(cfg, Deps{Logger: zaptest.NewLogger(t), DLRStore: store})
}

func readPDU(t *testing.T, conn net.Conn) (*pdu.Header, []byte) {
	t.Helper()
	h, err := pdu.DecodeHeader(conn)
	require.NoError(t, err)
	body := make([]byte, h.Len-pdu.HeaderLen)
	_, err = io.ReadFull(conn, body)
	require.NoError(t, err)
	return h, body
}

func fakeBindResp(t *testing.T, conn net.Conn) {
	t.Helper()
	h, body := readPDU(t, conn)
	_, err := pdu.Decode(h, body)
	require.NoError(t, err)
	resp := &pdu.BindResp{ID: pdu.ID(uint32(h.ID) | 0x80000000), SystemID: "smsc"}
	resp.H.Seq = h.Seq
	_, err = conn.Write(pdu.Encode(resp))
	require.NoError(t, err)
}

func doBind(t *testing.T, d *Driver, client, server net.Conn) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		fakeBindResp(t, server)
		close(done)
	}()
	require.NoError(t, d.bind(client))
	<-done
}

func TestSubmitAckRoundTrip(t *testing.T) {
	d := newTestDriver(t, BindTransceiver, nil)
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	doBind(t, d, client, server)

	sentCh := make(chan *msg.Msg, 1)
	d.cb = smscconn.Callbacks{Sent: func(m *msg.Msg) { sentCh <- m }}
	d.outbound.AddProducer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.submitLoop(ctx, client)
	go d.readLoop(ctx, client)

	require.NoError(t, d.SendMsg(msg.NewSMS(msg.SMS{
		Sender: "1234", Receiver: "5678", MsgData: []byte("hello"),
	})))

	h, body := readPDU(t, server)
	require.Equal(t, pdu.SubmitSMID, h.ID)
	decoded, err := pdu.Decode(h, body)
	require.NoError(t, err)
	submitSM := decoded.(*pdu.SubmitSM)
	require.Equal(t, "5678", submitSM.DestinationAddr)
	require.Equal(t, "hello", string(submitSM.ShortMessage))

	resp := &pdu.SubmitSMResp{MessageID: "msg-1"}
	resp.H.Seq = h.Seq
	_, err = server.Write(pdu.Encode(resp))
	require.NoError(t, err)

	select {
	case m := <-sentCh:
		require.Equal(t, "5678", m.SMS.Receiver)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Sent callback")
	}
	require.Equal(t, 0, d.pending.Len())
}

func TestSubmitThrottledSetsBackoffAndFailsTemporary(t *testing.T) {
	d := newTestDriver(t, BindTransceiver, nil)
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	doBind(t, d, client, server)

	failCh := make(chan smscconn.FailReason, 1)
	d.cb = smscconn.Callbacks{SendFailed: func(m *msg.Msg, reason smscconn.FailReason) { failCh <- reason }}
	d.outbound.AddProducer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.submitLoop(ctx, client)
	go d.readLoop(ctx, client)

	require.NoError(t, d.SendMsg(msg.NewSMS(msg.SMS{Sender: "1", Receiver: "2", MsgData: []byte("x")})))

	h, _ := readPDU(t, server)
	resp := &pdu.SubmitSMResp{}
	resp.H.Seq = h.Seq
	resp.H.Status = pdu.ESMERTHROTTLED
	_, err := server.Write(pdu.Encode(resp))
	require.NoError(t, err)

	select {
	case reason := <-failCh:
		require.Equal(t, smscconn.FailTemporary, reason)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for SendFailed callback")
	}
	require.True(t, d.throttled())
}

func TestDeliverSMDLRCorrelation(t *testing.T) {
	store := dlrstore.NewMemStore()
	d := newTestDriver(t, BindTransceiver, store)

	original := msg.NewSMS(msg.SMS{
		Sender: "9999", Receiver: "1234", MsgData: []byte("hi"),
		DLRMask: msg.DLRMaskSuccess, DLRURL: "http://example/dlr",
	})
	require.NoError(t, store.Add(context.Background(), d.cfg.SMSCID, "abc123", original))

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	recvCh := make(chan *msg.Msg, 1)
	d.cb = smscconn.Callbacks{Receive: func(m *msg.Msg) { recvCh <- m }}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.readLoop(ctx, client)

	deliver := &pdu.DeliverSM{
		SourceAddr:      "1234",
		DestinationAddr: "9999",
		ESMClass:        0x04,
		ShortMessage:    []byte("id:abc123 sub:001 dlvrd:001 submit date:2601010000 done date:2601010001 stat:DELIVRD err:000 text:"),
	}
	deliver.H.Seq = 7
	_, err := server.Write(pdu.Encode(deliver))
	require.NoError(t, err)

	h, _ := readPDU(t, server)
	require.Equal(t, pdu.DeliverSMRespID, h.ID)
	require.Equal(t, uint32(7), h.Seq)

	select {
	case m := <-recvCh:
		require.Equal(t, msg.SMSTypeReport, m.SMS.SMSType)
		require.Equal(t, int32(msg.DLRStatusSuccess), m.SMS.DLRMask)
		require.Equal(t, "1234", m.SMS.Sender)
		require.Equal(t, "9999", m.SMS.Receiver)
		require.Equal(t, "id:abc123 sub:001 dlvrd:001 submit date:2601010000 done date:2601010001 stat:DELIVRD err:000 text:", string(m.SMS.MsgData))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dlr report")
	}

	_, found, err := store.Find(context.Background(), d.cfg.SMSCID, "abc123", "", msg.DLRStatusSuccess)
	require.NoError(t, err)
	require.False(t, found, "dlr correlation entry should be consumed on match")
}

func TestDeliverSMMobileOriginated(t *testing.T) {
	d := newTestDriver(t, BindTransceiver, nil)

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	recvCh := make(chan *msg.Msg, 1)
	d.cb = smscconn.Callbacks{Receive: func(m *msg.Msg) { recvCh <- m }}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.readLoop(ctx, client)

	deliver := &pdu.DeliverSM{
		SourceAddrTON:   tonInternational,
		SourceAddr:      "00358401234567",
		DestinationAddr: "12345",
		ShortMessage:    []byte("hello there"),
	}
	deliver.H.Seq = 3
	_, err := server.Write(pdu.Encode(deliver))
	require.NoError(t, err)

	h, body := readPDU(t, server)
	require.Equal(t, pdu.DeliverSMRespID, h.ID)
	require.Equal(t, pdu.ESMEROK, h.Status)
	_ = body

	select {
	case m := <-recvCh:
		require.Equal(t, msg.SMSTypeMO, m.SMS.SMSType)
		require.Equal(t, "+358401234567", m.SMS.Sender)
		require.Equal(t, "hello there", string(m.SMS.MsgData))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mo message")
	}
}

func TestDeliverSMDecodesMessageClassFromDCS(t *testing.T) {
	d := newTestDriver(t, BindTransceiver, nil)

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	recvCh := make(chan *msg.Msg, 1)
	d.cb = smscconn.Callbacks{Receive: func(m *msg.Msg) { recvCh <- m }}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.readLoop(ctx, client)

	deliver := &pdu.DeliverSM{
		SourceAddr:      "12345",
		DestinationAddr: "54321",
		DataCoding:      0xF1, // message-class group, 7bit coding, class 1
		ShortMessage:    []byte("flash"),
	}
	deliver.H.Seq = 9
	_, err := server.Write(pdu.Encode(deliver))
	require.NoError(t, err)

	h, _ := readPDU(t, server)
	require.Equal(t, pdu.DeliverSMRespID, h.ID)

	select {
	case m := <-recvCh:
		require.Equal(t, msg.MClass(1), m.SMS.MClass)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mo message")
	}
}

func TestDeliverSMAlphanumericSenderTooLongRejected(t *testing.T) {
	d := newTestDriver(t, BindTransceiver, nil)

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	d.cb = smscconn.Callbacks{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.readLoop(ctx, client)

	deliver := &pdu.DeliverSM{
		SourceAddrTON:   tonAlphanumeric,
		SourceAddr:      "WAY-TOO-LONG-SENDER-ID",
		DestinationAddr: "12345",
		ShortMessage:    []byte("x"),
	}
	deliver.H.Seq = 9
	_, err := server.Write(pdu.Encode(deliver))
	require.NoError(t, err)

	h, _ := readPDU(t, server)
	require.Equal(t, pdu.ESMERINVESMCLASS, h.Status)
}

func TestHeartbeatLoopSendsEnquireLink(t *testing.T) {
	d := newTestDriver(t, BindTransceiver, nil)
	d.cfg.EnquireLinkInterval = 20 * time.Millisecond

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.heartbeatLoop(ctx, client)

	h, _ := readPDU(t, server)
	require.Equal(t, pdu.EnquireLinkID, h.ID)
}

func TestSweepExpiredReportsTemporaryFailureUnderWaitAckRequeue(t *testing.T) {
	d := newTestDriver(t, BindTransceiver, nil)
	d.cfg.WaitAck = 10 * time.Millisecond
	d.cfg.WaitAckAction = WaitAckRequeue
	d.outbound.AddProducer()

	failCh := make(chan smscconn.FailReason, 1)
	d.cb = smscconn.Callbacks{SendFailed: func(m *msg.Msg, reason smscconn.FailReason) { failCh <- reason }}

	m := msg.NewSMS(msg.SMS{Sender: "1", Receiver: "2", MsgData: []byte("x")})
	d.pending.Put(pendingKey(1), &pendingSubmit{sentTime: time.Now().Add(-time.Second), msg: m})

	require.True(t, d.sweepExpired())
	require.Equal(t, 0, d.pending.Len())

	select {
	case reason := <-failCh:
		require.Equal(t, smscconn.FailTemporary, reason)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for SendFailed callback")
	}

	_, ok := d.outbound.TryConsume()
	require.False(t, ok, "requeue must not push back onto the driver's own outbound queue")
}

func TestWaitAckLoopIsNoOpUnderWaitAckNeverExpire(t *testing.T) {
	d := newTestDriver(t, BindTransceiver, nil)
	d.cfg.WaitAckAction = WaitAckNeverExpire

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.waitAckLoop(ctx))
}
