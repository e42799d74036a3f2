package handshake

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"
)

func TestPerformAckRoundTrip(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	done := make(chan error, 1)
	go func() { done <- Perform(server, server) }()

	if err := Ack(client, client); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Perform: %v", err)
	}
}

func TestPerformRejectsWrongAck(t *testing.T) {
	var out bytes.Buffer
	in := bytes.NewReader([]byte{0xFF})
	if err := Perform(in, &out); err == nil {
		t.Fatal("expected error for wrong ack byte")
	}
}

func TestAckRejectsNonHandshakeFrame(t *testing.T) {
	hdr := make([]byte, 12)
	hdr[0], hdr[1] = 12, 0
	hdr[2] = 0x01 // TypeRegularPayload, not a handshake frame
	in := bytes.NewReader(hdr)
	var out bytes.Buffer
	if err := Ack(in, &out); err == nil {
		t.Fatal("expected error for non-handshake frame")
	}
}

func TestPerformHasNoDeadline(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	done := make(chan error, 1)
	go func() { done <- Perform(server, server) }()

	select {
	case <-done:
		t.Fatal("Perform returned before client acked")
	case <-time.After(50 * time.Millisecond):
	}
	_ = io.Discard
	if err := Ack(client, client); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	<-done
}
