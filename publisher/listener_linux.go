// File: publisher/listener_linux.go
//go:build linux

// Package publisher
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on internal/transport/transport_linux.go's use of
// golang.org/x/sys/unix.SetsockoptInt on a raw fd, applied here through
// net.ListenConfig.Control so the rest of the publisher can stay on
// net.Listener instead of managing a raw socket — the original's
// acceptor_.set_option(reuse_address(true)) has the same effect via asio.
package publisher

import (
	"context"
	"net"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"
)

func listenReuseAddr(host string, port uint16) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
	return lc.Listen(context.Background(), "tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
}
