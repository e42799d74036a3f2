// File: publisher/listener_other.go
//go:build !linux

// Package publisher
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-Linux fallback: net.Listen already sets SO_REUSEADDR-equivalent
// behavior on most platforms' TCP listeners, so no raw socket option is
// needed outside Linux, mirroring the teacher's reactor_stub.go pattern of
// a plain-Go fallback next to a platform-specialized primary file.
package publisher

import (
	"net"
	"strconv"
)

func listenReuseAddr(host string, port uint16) (net.Listener, error) {
	return net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
}
