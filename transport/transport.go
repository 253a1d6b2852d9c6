/*
udpft - datagram file transferring utility.
Copyright (C) 2021,2022  Kasyanov Nikolay Alexeyevich (Unbewohnte)

This file is a part of udpft

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Datagram primitives shared by the client and the server
package transport

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Unbewohnte/udpft/protocol"
)

// Binds a UDP socket on all interfaces. Port 0 picks any free port
func Listen(port uint16) (*net.UDPConn, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: int(port)})
	if err != nil {
		return nil, &Error{Op: "listen", Err: err}
	}

	return conn, nil
}

// Resolves host and port into an address datagrams can be sent to
func Resolve(host string, port uint16) (*net.UDPAddr, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		return nil, fmt.Errorf("could not resolve %s:%d: %w", host, port, err)
	}

	return addr, nil
}

// Returns the same host as addr, but with another port
func WithPort(addr net.Addr, port uint16) net.Addr {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return &net.UDPAddr{IP: a.IP, Port: int(port), Zone: a.Zone}
	default:
		host, _, err := net.SplitHostPort(addr.String())
		if err != nil {
			host = addr.String()
		}
		resolved, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(int(port))))
		if err != nil {
			return addr
		}
		return resolved
	}
}

// Encodes and sends given message as a single datagram.
// ALL server replies are sent by this function
func SendMessage(conn net.PacketConn, addr net.Addr, message protocol.Message) error {
	datagram, err := protocol.Encode(message)
	if err != nil {
		return err
	}

	_, err = conn.WriteTo(datagram, addr)
	if err != nil {
		return &Error{Op: "send", Addr: addr, Err: err}
	}

	return nil
}

// Waits at most wait for one datagram. The returned slice is a copy and
// can be kept after the next call. An expired wait is reported with an
// error for which IsTimeout returns true
func Receive(conn net.PacketConn, buffer []byte, wait time.Duration) ([]byte, net.Addr, error) {
	err := conn.SetReadDeadline(time.Now().Add(wait))
	if err != nil {
		return nil, nil, &Error{Op: "set deadline", Err: err}
	}

	n, from, err := conn.ReadFrom(buffer)
	if err != nil {
		if IsTimeout(err) {
			return nil, nil, err
		}
		return nil, nil, &Error{Op: "receive", Err: err}
	}

	datagram := make([]byte, n)
	copy(datagram, buffer[:n])

	return datagram, from, nil
}

// Checks whether a and b point to the same host and port
func SameAddr(a net.Addr, b net.Addr) bool {
	if a == nil || b == nil {
		return false
	}

	ua, okA := a.(*net.UDPAddr)
	ub, okB := b.(*net.UDPAddr)
	if okA && okB {
		return ua.Port == ub.Port && ua.IP.Equal(ub.IP)
	}

	return a.String() == b.String()
}
