// File: publisher/publisher.go
// Package publisher implements Publisher: the accepting endpoint that fans
// published payloads out to every connected, handshaken subscriber.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on publisher_impl.cpp's start/cancel/send/acceptClient: a single
// acceptor loop that launches one session per accepted connection and
// inserts it into the sessions set immediately, before its handshake
// completes, so a concurrent Send can race a session's handshake — the
// session package's backlog-then-drain ordering (see session.Session)
// exists specifically to make that race harmless. Disjoint locks guard the
// sessions set and the transient-local ring, matching the original's two
// separate mutexes, never nested.
package publisher

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tsingakbar/tcp-pubsub/api"
	"github.com/tsingakbar/tcp-pubsub/pool"
	"github.com/tsingakbar/tcp-pubsub/session"
	"github.com/tsingakbar/tcp-pubsub/transientlocal"
	"github.com/tsingakbar/tcp-pubsub/wire"
)

// TransientLocalSetting controls backlog retention. MaxCount == 0 disables
// it entirely, matching buffer_max_count_ == 0 in the original.
type TransientLocalSetting struct {
	MaxCount int
	Lifespan time.Duration
}

type MetricsSink interface {
	session.Metrics
	ObservePayloadSize(n int)
}

// Publisher accepts subscriber connections on one TCP endpoint and fans
// published payloads out to all of them.
type Publisher struct {
	reactor   api.Reactor
	bufPool   api.BufferPool
	log       api.LogFunc
	metrics   MetricsSink
	tlSetting TransientLocalSetting

	mu       sync.Mutex
	running  bool
	listener net.Listener

	sessionsMu sync.Mutex
	sessions   map[string]*session.Session

	transientMu sync.Mutex
	transient   *transientlocal.Ring
}

type nopMetricsSink struct{}

func (nopMetricsSink) IncSessionDrop()        {}
func (nopMetricsSink) AddBytesSent(int)       {}
func (nopMetricsSink) ObservePayloadSize(int) {}

// New creates a Publisher bound to no endpoint yet. Call Start to begin
// accepting. metrics and logFn may both be nil.
func New(reactor api.Reactor, bufPool api.BufferPool, tlSetting TransientLocalSetting, metrics MetricsSink, logFn api.LogFunc) *Publisher {
	if metrics == nil {
		metrics = nopMetricsSink{}
	}
	if logFn == nil {
		logFn = api.NopLog
	}
	if bufPool == nil {
		bufPool = pool.NewBufferPool()
	}
	return &Publisher{
		reactor:   reactor,
		bufPool:   bufPool,
		log:       logFn,
		metrics:   metrics,
		tlSetting: tlSetting,
		sessions:  make(map[string]*session.Session),
		transient: transientlocal.New(tlSetting.MaxCount, tlSetting.Lifespan),
	}
}

// Start parses address:port, opens and binds the acceptor with
// SO_REUSEADDR, and launches the accept loop. It returns a *api.Error on
// any failure: KindAddressParse for an invalid address, and KindAcceptorBind
// for any failure of the combined open/set-option/bind/listen step, which
// net.ListenConfig performs as one call.
func (p *Publisher) Start(address string, port uint16) error {
	host, err := validateHost(address)
	if err != nil {
		p.log(api.LevelError, fmt.Sprintf("publisher: invalid address %q: %v", address, err))
		return api.Wrap(api.KindAddressParse, "parse address", err)
	}

	listener, err := listenReuseAddr(host, port)
	if err != nil {
		p.log(api.LevelError, fmt.Sprintf("publisher: error opening acceptor on %s:%d: %v", host, port, err))
		return api.Wrap(api.KindAcceptorBind, "open/bind/listen acceptor", err)
	}

	p.mu.Lock()
	p.listener = listener
	p.running = true
	p.mu.Unlock()

	p.log(api.LevelInfo, fmt.Sprintf("publisher: created and waiting for clients on %s", listener.Addr()))
	p.reactor.Go(p.acceptLoop)
	return nil
}

// Cancel closes the acceptor and cancels every session. Idempotent.
func (p *Publisher) Cancel() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	listener := p.listener
	p.mu.Unlock()

	if listener != nil {
		_ = listener.Close()
	}

	p.sessionsMu.Lock()
	sessions := make([]*session.Session, 0, len(p.sessions))
	for _, s := range p.sessions {
		sessions = append(sessions, s)
	}
	p.sessionsMu.Unlock()

	for _, s := range sessions {
		s.Cancel()
	}

	p.transientMu.Lock()
	p.transient.Close()
	p.transientMu.Unlock()
}

// IsRunning reports whether Start has succeeded and Cancel has not yet run.
func (p *Publisher) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Port returns the bound TCP port, or 0 if the publisher is not running —
// matching getPort()'s exact zero-on-not-running semantics.
func (p *Publisher) Port() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running || p.listener == nil {
		return 0
	}
	addr, ok := p.listener.Addr().(*net.TCPAddr)
	if !ok {
		return 0
	}
	return uint16(addr.Port)
}

// LocalAddr returns the acceptor's bound address, or nil if not running.
// Used purely for logging, mirroring the original's localEndpointToString.
func (p *Publisher) LocalAddr() net.Addr {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running || p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// SubscriberCount returns the number of sessions currently tracked,
// regardless of whether each has completed its handshake yet.
func (p *Publisher) SubscriberCount() int {
	p.sessionsMu.Lock()
	defer p.sessionsMu.Unlock()
	return len(p.sessions)
}

func (p *Publisher) acceptLoop() {
	for {
		p.mu.Lock()
		listener := p.listener
		p.mu.Unlock()
		if listener == nil {
			return
		}

		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				p.log(api.LevelInfo, "publisher: acceptor cancelled")
			} else {
				p.log(api.LevelError, fmt.Sprintf("publisher: error while waiting for subscriber: %v", err))
			}
			return
		}

		p.log(api.LevelInfo, fmt.Sprintf("publisher: subscriber %s has connected", conn.RemoteAddr()))
		p.acceptSession(conn)
	}
}

func (p *Publisher) acceptSession(conn net.Conn) {
	id := uuid.NewString()
	sess := session.New(id, conn, p.onSessionClosed, p.metrics)

	p.sessionsMu.Lock()
	p.sessions[id] = sess
	p.sessionsMu.Unlock()

	p.reactor.Go(func() {
		sess.Start(p.onHandshakeOK)
	})
}

func (p *Publisher) onSessionClosed(s *session.Session) {
	p.sessionsMu.Lock()
	_, existed := p.sessions[s.ID()]
	delete(p.sessions, s.ID())
	count := len(p.sessions)
	p.sessionsMu.Unlock()

	if existed {
		p.log(api.LevelDebug, fmt.Sprintf("publisher: removed session for %s, subscriber count now %d", s.RemoteAddr(), count))
	}
}

// onHandshakeOK replays the transient-local backlog into s right as it
// transitions to Running, before its writer pump starts draining pending —
// the same point in the lifecycle the original's transient_local_push_handler
// runs at. Per the original's "concatenate all buffered frames end-to-end
// into one freshly allocated buffer" rule, the backlog's payloads (header
// stripped from each) are copied into a single new frame with one header
// whose data_size is their sum, so a newly connected subscriber observes
// exactly one transient-local frame rather than one per retained send.
func (p *Publisher) onHandshakeOK(s *session.Session) {
	if p.tlSetting.MaxCount == 0 {
		return
	}
	p.transientMu.Lock()
	p.transient.Purge(time.Now())
	backlog := p.transient.Snapshot()
	p.transientMu.Unlock()
	if len(backlog) == 0 {
		return
	}

	totalPayload := 0
	for _, b := range backlog {
		totalPayload += b.Len() - wire.HeaderSize
	}

	merged := p.bufPool.Get(wire.HeaderSize + totalPayload)
	wire.Encode(merged.Bytes()[:wire.HeaderSize], wire.Header{
		HeaderSize: wire.HeaderSize,
		Type:       wire.TypeRegularPayload,
		DataSize:   uint64(totalPayload),
	})
	offset := wire.HeaderSize
	for _, b := range backlog {
		payload := b.Bytes()[wire.HeaderSize:]
		copy(merged.Bytes()[offset:], payload)
		offset += len(payload)
		b.Release()
	}

	s.PushBacklog([]api.Buffer{merged})
}

// Send frames chunks behind a single header — concatenating every chunk
// into one message payload in order, skipping nil or zero-length chunks —
// and fans the resulting buffer out to every currently tracked session,
// retaining it for future subscribers when transient-local retention is
// enabled. Mirrors the original's send(payloads) taking a sequence of
// (pointer, length) pairs rather than a single pre-joined byte slice, so a
// caller assembling a message from several disjoint pieces (e.g. a fixed
// topic header plus a variable body) never has to concatenate them itself
// first. It is a no-op (but not an error) when no subscriber is connected
// and transient-local retention is disabled, matching the original's fast
// path that skips allocating a buffer entirely in that case.
//
// The framed buffer already contains the frame header: a session's
// writer pump writes it to the socket verbatim in one call, rather than
// issuing a second write for the payload.
func (p *Publisher) Send(chunks ...[]byte) error {
	if !p.IsRunning() {
		return api.NewError(api.KindNotRunning, "publisher is not running")
	}

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if total > wire.MaxPayloadSize {
		return api.NewError(api.KindFrameTooLarge, "payload exceeds MaxPayloadSize").
			WithContext("size", total)
	}

	if p.tlSetting.MaxCount == 0 {
		p.sessionsMu.Lock()
		empty := len(p.sessions) == 0
		p.sessionsMu.Unlock()
		if empty {
			return nil
		}
	}

	buf := p.bufPool.Get(wire.HeaderSize + total)
	wire.Encode(buf.Bytes()[:wire.HeaderSize], wire.Header{
		HeaderSize: wire.HeaderSize,
		Type:       wire.TypeRegularPayload,
		DataSize:   uint64(total),
	})
	offset := wire.HeaderSize
	for _, c := range chunks {
		if len(c) == 0 {
			continue
		}
		offset += copy(buf.Bytes()[offset:], c)
	}
	p.metrics.ObservePayloadSize(total)

	p.sessionsMu.Lock()
	for _, s := range p.sessions {
		s.Send(buf.Retain())
	}
	p.sessionsMu.Unlock()

	if p.tlSetting.MaxCount > 0 {
		p.transientMu.Lock()
		p.transient.Push(buf.Retain(), time.Now())
		p.transientMu.Unlock()
	}

	buf.Release()
	return nil
}

func validateHost(address string) (string, error) {
	if address == "" {
		return "0.0.0.0", nil
	}
	if ip := net.ParseIP(address); ip == nil {
		return "", fmt.Errorf("not a valid IP address: %q", address)
	}
	return address, nil
}
