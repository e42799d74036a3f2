package publisher

import (
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/tsingakbar/tcp-pubsub/executor"
	"github.com/tsingakbar/tcp-pubsub/handshake"
	"github.com/tsingakbar/tcp-pubsub/wire"
)

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	var lastErr error
	for i := 0; i < 50; i++ {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			return conn
		}
		lastErr = err
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("dial %s: %v", addr, lastErr)
	return nil
}

func readFrame(t *testing.T, r net.Conn) (wire.Header, []byte) {
	t.Helper()
	hdr := make([]byte, wire.HeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		t.Fatalf("read header: %v", err)
	}
	h, _, err := wire.Decode(hdr)
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	payload := make([]byte, h.DataSize)
	if h.DataSize > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			t.Fatalf("read payload: %v", err)
		}
	}
	return h, payload
}

func newStartedPublisher(t *testing.T, tl TransientLocalSetting) (*Publisher, func()) {
	t.Helper()
	ex := executor.New()
	ex.Start(4)
	pub := New(ex.Reactor(), nil, tl, nil, nil)
	if err := pub.Start("127.0.0.1", 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return pub, func() {
		pub.Cancel()
		ex.Stop()
	}
}

func TestPortReturnsZeroBeforeStart(t *testing.T) {
	ex := executor.New()
	ex.Start(1)
	defer ex.Stop()
	pub := New(ex.Reactor(), nil, TransientLocalSetting{}, nil, nil)
	if got := pub.Port(); got != 0 {
		t.Fatalf("Port() before Start = %d, want 0", got)
	}
	if pub.IsRunning() {
		t.Fatal("IsRunning() before Start should be false")
	}
}

func TestSendWithoutSubscribersIsNoopWhenTransientDisabled(t *testing.T) {
	pub, cleanup := newStartedPublisher(t, TransientLocalSetting{})
	defer cleanup()

	if err := pub.Send([]byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestSubscriberReceivesPublishedPayloadAfterHandshake(t *testing.T) {
	pub, cleanup := newStartedPublisher(t, TransientLocalSetting{})
	defer cleanup()

	addr := net.JoinHostPort("127.0.0.1", itoa(pub.Port()))
	conn := dial(t, addr)
	defer conn.Close()

	if err := handshake.Ack(conn, conn); err != nil {
		t.Fatalf("Ack: %v", err)
	}

	deadlinePoll(t, func() bool { return pub.SubscriberCount() == 1 })

	if err := pub.Send([]byte("payload")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	_, payload := readFrame(t, conn)
	if string(payload) != "payload" {
		t.Fatalf("payload = %q, want %q", payload, "payload")
	}
}

func TestTransientLocalBacklogDeliveredOnHandshake(t *testing.T) {
	pub, cleanup := newStartedPublisher(t, TransientLocalSetting{MaxCount: 4})
	defer cleanup()

	if err := pub.Send([]byte("first")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := pub.Send([]byte("second")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	addr := net.JoinHostPort("127.0.0.1", itoa(pub.Port()))
	conn := dial(t, addr)
	defer conn.Close()

	if err := handshake.Ack(conn, conn); err != nil {
		t.Fatalf("Ack: %v", err)
	}

	hdr, payload := readFrame(t, conn)
	if string(payload) != "firstsecond" {
		t.Fatalf("backlog payload = %q, want %q", payload, "firstsecond")
	}
	if hdr.DataSize != uint64(len("firstsecond")) {
		t.Fatalf("backlog data_size = %d, want %d", hdr.DataSize, len("firstsecond"))
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	pub, cleanup := newStartedPublisher(t, TransientLocalSetting{})
	defer cleanup()
	pub.Cancel()
	pub.Cancel()
	if pub.IsRunning() {
		t.Fatal("IsRunning() after Cancel should be false")
	}
}

// TestSendDropsStaleMessageUnderCongestion drives the publisher end to end
// with a stalled subscriber (one end of a net.Pipe, whose Write blocks
// until the other end Reads) to exercise scenario S5: once a send is in
// flight and a second is queued behind it, a third send must overwrite the
// queued one rather than pile up a third, so the subscriber observes a
// then c, never b.
func TestSendDropsStaleMessageUnderCongestion(t *testing.T) {
	pub, cleanup := newStartedPublisher(t, TransientLocalSetting{})
	defer cleanup()

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()
	pub.acceptSession(serverConn)

	if err := handshake.Ack(clientConn, clientConn); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	deadlinePoll(t, func() bool { return pub.SubscriberCount() == 1 })

	if err := pub.Send([]byte("a")); err != nil {
		t.Fatalf("Send a: %v", err)
	}
	// Give the session's writer pump time to pop "a" out of pending and
	// block writing it to the stalled pipe, so "a" is in flight rather
	// than still queued when b and c arrive.
	time.Sleep(50 * time.Millisecond)

	if err := pub.Send([]byte("b")); err != nil {
		t.Fatalf("Send b: %v", err)
	}
	if err := pub.Send([]byte("c")); err != nil {
		t.Fatalf("Send c: %v", err)
	}

	_, first := readFrame(t, clientConn)
	if string(first) != "a" {
		t.Fatalf("first delivered payload = %q, want %q", first, "a")
	}
	_, second := readFrame(t, clientConn)
	if string(second) != "c" {
		t.Fatalf("second delivered payload = %q, want %q (b must be dropped)", second, "c")
	}
}

// TestSendConcatenatesChunks exercises the restored multi-chunk send
// contract: several chunks given to one Send call arrive as a single frame
// with their payloads concatenated in order, and zero-length chunks
// contribute nothing.
func TestSendConcatenatesChunks(t *testing.T) {
	pub, cleanup := newStartedPublisher(t, TransientLocalSetting{})
	defer cleanup()

	addr := net.JoinHostPort("127.0.0.1", itoa(pub.Port()))
	conn := dial(t, addr)
	defer conn.Close()

	if err := handshake.Ack(conn, conn); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	deadlinePoll(t, func() bool { return pub.SubscriberCount() == 1 })

	if err := pub.Send([]byte("topic:"), nil, []byte("body"), []byte("")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	hdr, payload := readFrame(t, conn)
	if string(payload) != "topic:body" {
		t.Fatalf("payload = %q, want %q", payload, "topic:body")
	}
	if hdr.DataSize != uint64(len("topic:body")) {
		t.Fatalf("data_size = %d, want %d", hdr.DataSize, len("topic:body"))
	}
}

func deadlinePoll(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func itoa(port uint16) string {
	return strconv.Itoa(int(port))
}
