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

package server

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Unbewohnte/udpft/protocol"
	"github.com/Unbewohnte/udpft/transport"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/nettest"
)

func quietLogger() log.FieldLogger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func Test_ParsePortRange(t *testing.T) {
	valid := map[string]PortRange{
		"50000-51000":   {Min: 50000, Max: 51000},
		" 6000 - 6001 ": {Min: 6000, Max: 6001},
		"7270":          {Min: 7270, Max: 7270},
	}
	for s, expected := range valid {
		ports, err := ParsePortRange(s)
		if err != nil {
			t.Errorf("ParsePortRange error: %q: %s", s, err)
			continue
		}
		if ports != expected {
			t.Errorf("ParsePortRange error: %q: expected %v; got %v", s, expected, ports)
		}
	}

	for _, s := range []string{"", "a-b", "51000-50000", "0-10", "1-70000", "-"} {
		_, err := ParsePortRange(s)
		if err == nil {
			t.Errorf("ParsePortRange error: %q has been accepted", s)
		}
	}
}

func Test_AllocatePort(t *testing.T) {
	first, err := AllocatePort(rand.New(rand.NewSource(42)), DefaultPorts, nil)
	if err != nil {
		t.Fatalf("AllocatePort error: %s", err)
	}
	second, err := AllocatePort(rand.New(rand.NewSource(42)), DefaultPorts, nil)
	if err != nil {
		t.Fatalf("AllocatePort error: %s", err)
	}

	if first != second {
		t.Fatalf("AllocatePort error: the same seed gave %d and %d", first, second)
	}
	if !DefaultPorts.Contains(first) {
		t.Fatalf("AllocatePort error: %d is out of %s", first, DefaultPorts)
	}
}

func Test_AllocatePortExclusion(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ports := PortRange{Min: 100, Max: 102}
	exclude := map[uint16]struct{}{100: {}, 102: {}}

	for i := 0; i < 20; i++ {
		port, err := AllocatePort(rng, ports, exclude)
		if err != nil {
			t.Fatalf("AllocatePort error: %s", err)
		}
		if port != 101 {
			t.Fatalf("AllocatePort error: picked excluded port %d", port)
		}
	}

	exclude[101] = struct{}{}
	_, err := AllocatePort(rng, ports, exclude)
	if !errors.Is(err, ErrorNoFreePort) {
		t.Fatalf("AllocatePort error: expected ErrorNoFreePort; got %v", err)
	}
}

func Test_BindDataPortTaken(t *testing.T) {
	taken, err := transport.Listen(0)
	if err != nil {
		t.Fatalf("%s", err)
	}
	defer taken.Close()

	port := uint16(taken.LocalAddr().(*net.UDPAddr).Port)
	exclude := map[uint16]struct{}{}

	_, _, err = bindDataPort(rand.New(rand.NewSource(1)), PortRange{Min: port, Max: port}, exclude)
	if !errors.Is(err, ErrorNoFreePort) {
		t.Fatalf("bindDataPort error: expected ErrorNoFreePort; got %v", err)
	}
	if _, ok := exclude[port]; !ok {
		t.Fatalf("bindDataPort error: a port that failed to bind has not been excluded")
	}
}

// starts a server serving root and stops it when the test ends
func startServer(t *testing.T, options *Options) (*Server, context.CancelFunc, <-chan error) {
	t.Helper()

	if options.Logger == nil {
		options.Logger = quietLogger()
	}
	if options.PollInterval == 0 {
		options.PollInterval = 20 * time.Millisecond
	}

	server, err := NewServer(options)
	if err != nil {
		t.Fatalf("NewServer error: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx)
		close(done)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Errorf("Serve has not returned after cancellation")
		}
	})

	return server, cancel, done
}

func loopbackAddr(server *Server, port uint16) net.Addr {
	if port == 0 {
		port = uint16(server.Addr().(*net.UDPAddr).Port)
	}
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: int(port)}
}

// sends a raw request and returns the response, or "" if nothing came in time
func ask(t *testing.T, conn net.PacketConn, to net.Addr, request string, wait time.Duration) string {
	t.Helper()

	_, err := conn.WriteTo([]byte(request), to)
	if err != nil {
		t.Fatalf("could not send %q: %s", request, err)
	}

	response, _, err := transport.Receive(conn, make([]byte, protocol.MaxPacketSize), wait)
	if transport.IsTimeout(err) {
		return ""
	}
	if err != nil {
		t.Fatalf("could not receive a response to %q: %s", request, err)
	}

	return string(response)
}

func newClientConn(t *testing.T) net.PacketConn {
	t.Helper()

	conn, err := nettest.NewLocalPacketListener("udp4")
	if err != nil {
		t.Fatalf("%s", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

func rootWith(t *testing.T, name string, contents []byte) string {
	t.Helper()

	root := t.TempDir()
	err := os.WriteFile(filepath.Join(root, name), contents, 0644)
	if err != nil {
		t.Fatalf("%s", err)
	}

	return root
}

func eventually(t *testing.T, condition func() bool, description string) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting until %s", description)
}

// returns the data port of an accepted download
func download(t *testing.T, server *Server, conn net.PacketConn, filename string) uint16 {
	t.Helper()

	response := ask(t, conn, loopbackAddr(server, 0), "DOWNLOAD "+filename, time.Second)

	message, err := protocol.Decode([]byte(response))
	if err != nil {
		t.Fatalf("unexpected response %q: %s", response, err)
	}
	accepted, ok := message.(protocol.DownloadOk)
	if !ok {
		t.Fatalf("expected OK; got %q", response)
	}

	return accepted.Port
}

func Test_ServerNotFound(t *testing.T) {
	server, _, _ := startServer(t, &Options{Root: t.TempDir()})
	conn := newClientConn(t)

	response := ask(t, conn, loopbackAddr(server, 0), "DOWNLOAD missing.txt", time.Second)
	if response != "ERR missing.txt NOT_FOUND" {
		t.Fatalf("Server error: unexpected response %q", response)
	}
	if server.Sessions() != 0 {
		t.Fatalf("Server error: a session has been created for a missing file")
	}
}

func Test_ServerOutsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "served")
	os.Mkdir(root, os.ModePerm)
	os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("secret"), 0644)

	server, _, _ := startServer(t, &Options{Root: root})
	conn := newClientConn(t)

	response := ask(t, conn, loopbackAddr(server, 0), "DOWNLOAD ../secret.txt", time.Second)
	if response != "ERR ../secret.txt NOT_FOUND" {
		t.Fatalf("Server error: unexpected response %q", response)
	}
}

func Test_ServerTransfer(t *testing.T) {
	contents := []byte("0123456789abcdef")
	server, _, _ := startServer(t, &Options{Root: rootWith(t, "a.txt", contents)})
	conn := newClientConn(t)

	response := ask(t, conn, loopbackAddr(server, 0), "DOWNLOAD a.txt", time.Second)
	fields := strings.Fields(response)
	if len(fields) != 6 || fields[0] != "OK" || fields[3] != strconv.Itoa(len(contents)) {
		t.Fatalf("Server error: unexpected response %q", response)
	}

	port, _ := strconv.ParseUint(fields[5], 10, 16)
	if !DefaultPorts.Contains(uint16(port)) {
		t.Fatalf("Server error: data port %d is out of %s", port, DefaultPorts)
	}
	data := loopbackAddr(server, uint16(port))

	response = ask(t, conn, data, "FILE a.txt GET START 10 END 15", time.Second)
	if response != "FILE a.txt OK START 10 END 15 DATA YWJjZGVm" {
		t.Fatalf("Server error: unexpected chunk %q", response)
	}

	// requests that cannot be answered exactly get no reply at all
	for _, request := range []string{
		"FILE a.txt GET START 10 END 16",
		"FILE a.txt GET START 5 END 4",
		"FILE b.txt GET START 0 END 1",
		"FILE a.txt GET START zero END 1",
	} {
		response = ask(t, conn, data, request, 100*time.Millisecond)
		if response != "" {
			t.Fatalf("Server error: %q has been answered with %q", request, response)
		}
	}

	// and the session survives them
	response = ask(t, conn, data, "FILE a.txt GET START 0 END 0", time.Second)
	if response != "FILE a.txt OK START 0 END 0 DATA MA==" {
		t.Fatalf("Server error: unexpected chunk %q", response)
	}

	response = ask(t, conn, data, "FILE a.txt CLOSE", time.Second)
	if response != "FILE a.txt CLOSE_OK" {
		t.Fatalf("Server error: unexpected close response %q", response)
	}

	eventually(t, func() bool { return server.Sessions() == 0 }, "the session is released")

	response = ask(t, conn, data, "FILE a.txt CLOSE", 200*time.Millisecond)
	if response != "" {
		t.Fatalf("Server error: the second CLOSE has been answered with %q", response)
	}
}

func Test_ServerWideRange(t *testing.T) {
	contents := make([]byte, 3000)
	for i := range contents {
		contents[i] = byte(i)
	}
	server, _, _ := startServer(t, &Options{Root: rootWith(t, "wide.bin", contents)})
	conn := newClientConn(t)

	data := loopbackAddr(server, download(t, server, conn, "wide.bin"))

	response := ask(t, conn, data, "FILE wide.bin GET START 0 END 2999", time.Second)
	message, err := protocol.Decode([]byte(response))
	if err != nil {
		t.Fatalf("Server error: %s", err)
	}
	chunk, ok := message.(protocol.ChunkOk)
	if !ok || !chunk.Complete() || len(chunk.Data) != len(contents) {
		t.Fatalf("Server error: a range wider than a chunk that fits a datagram has not been served")
	}
}

func Test_ServerForeignClient(t *testing.T) {
	server, _, _ := startServer(t, &Options{Root: rootWith(t, "a.txt", []byte("abc"))})
	owner := newClientConn(t)
	stranger := newClientConn(t)

	data := loopbackAddr(server, download(t, server, owner, "a.txt"))

	response := ask(t, stranger, data, "FILE a.txt GET START 0 END 2", 200*time.Millisecond)
	if response != "" {
		t.Fatalf("Server error: a foreign client has been served: %q", response)
	}

	response = ask(t, stranger, data, "FILE a.txt CLOSE", 200*time.Millisecond)
	if response != "" || server.Sessions() != 1 {
		t.Fatalf("Server error: a foreign client closed the session")
	}
}

func Test_ServerConcurrentSessions(t *testing.T) {
	server, _, _ := startServer(t, &Options{Root: rootWith(t, "shared.txt", []byte("shared contents"))})
	first := newClientConn(t)
	second := newClientConn(t)

	firstPort := download(t, server, first, "shared.txt")
	secondPort := download(t, server, second, "shared.txt")

	if firstPort == secondPort {
		t.Fatalf("Server error: two sessions share port %d", firstPort)
	}
	if server.Sessions() != 2 {
		t.Fatalf("Server error: expected 2 sessions; got %d", server.Sessions())
	}

	// closing one does not affect the other
	response := ask(t, first, loopbackAddr(server, firstPort), "FILE shared.txt CLOSE", time.Second)
	if response != "FILE shared.txt CLOSE_OK" {
		t.Fatalf("Server error: unexpected close response %q", response)
	}

	response = ask(t, second, loopbackAddr(server, secondPort), "FILE shared.txt GET START 0 END 5", time.Second)
	if response != "FILE shared.txt OK START 0 END 5 DATA c2hhcmVk" {
		t.Fatalf("Server error: unexpected chunk %q", response)
	}
}

func Test_ServerIdleTimeout(t *testing.T) {
	server, _, _ := startServer(t, &Options{
		Root:        rootWith(t, "a.txt", []byte("abc")),
		IdleTimeout: 100 * time.Millisecond,
	})
	conn := newClientConn(t)

	download(t, server, conn, "a.txt")

	eventually(t, func() bool { return server.Sessions() == 0 }, "the idle session is dropped")
}

func Test_ServerShutdown(t *testing.T) {
	server, cancel, done := startServer(t, &Options{Root: rootWith(t, "a.txt", []byte("abc"))})
	conn := newClientConn(t)

	for i := 0; i < 3; i++ {
		download(t, server, conn, "a.txt")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve error: %s", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("Serve has not returned after cancellation")
	}

	if server.Sessions() != 0 {
		t.Fatalf("Server error: %d sessions outlived the server", server.Sessions())
	}
}

func Test_ServerWelcomeSocketClosed(t *testing.T) {
	server, _, done := startServer(t, &Options{Root: rootWith(t, "a.txt", []byte("abc"))})
	conn := newClientConn(t)

	download(t, server, conn, "a.txt")

	// the context stays live, only the socket goes away
	server.conn.Close()

	select {
	case err := <-done:
		if !errors.Is(err, net.ErrClosed) {
			t.Fatalf("Serve error: expected net.ErrClosed; got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("Serve has not returned after its socket has been closed; %d session(s) left", server.Sessions())
	}

	if server.Sessions() != 0 {
		t.Fatalf("Server error: %d sessions outlived the server", server.Sessions())
	}
}

// fails the first reads the way a socket does after an ICMP unreachable
type flakyConn struct {
	net.PacketConn
	failures int
}

func (c *flakyConn) ReadFrom(p []byte) (int, net.Addr, error) {
	if c.failures > 0 {
		c.failures--
		return 0, nil, errors.New("connection reset by peer")
	}
	return c.PacketConn.ReadFrom(p)
}

func Test_ServerSurvivesReceiveErrors(t *testing.T) {
	server, err := NewServer(&Options{
		Root:         rootWith(t, "a.txt", []byte("abc")),
		PollInterval: 20 * time.Millisecond,
		Logger:       quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewServer error: %s", err)
	}
	server.conn = &flakyConn{PacketConn: server.conn, failures: 3}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	conn := newClientConn(t)
	response := ask(t, conn, loopbackAddr(server, 0), "DOWNLOAD missing.txt", time.Second)
	if response != "ERR missing.txt NOT_FOUND" {
		t.Fatalf("Server error: unexpected response %q after receive errors", response)
	}
}

func Test_ServerTruncatedFile(t *testing.T) {
	root := rootWith(t, "a.txt", []byte("0123456789abcdef"))
	server, _, _ := startServer(t, &Options{Root: root})
	conn := newClientConn(t)

	data := loopbackAddr(server, download(t, server, conn, "a.txt"))

	err := os.Truncate(filepath.Join(root, "a.txt"), 4)
	if err != nil {
		t.Fatalf("%s", err)
	}

	response := ask(t, conn, data, "FILE a.txt GET START 0 END 9", 200*time.Millisecond)
	if response != "" {
		t.Fatalf("Server error: a range past the truncated end has been answered with %q", response)
	}

	response = ask(t, conn, data, "FILE a.txt GET START 0 END 3", time.Second)
	if response != "FILE a.txt OK START 0 END 3 DATA MDEyMw==" {
		t.Fatalf("Server error: the session has not survived a short read: %q", response)
	}
}

func Test_NewServerInvalidRoot(t *testing.T) {
	root := rootWith(t, "file.txt", nil)

	_, err := NewServer(&Options{Root: filepath.Join(root, "file.txt"), Logger: quietLogger()})
	if err == nil {
		t.Fatalf("NewServer error: a file has been accepted as a serving root")
	}

	_, err = NewServer(&Options{Root: filepath.Join(root, "nothing"), Logger: quietLogger()})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("NewServer error: expected a not-exist error; got %v", err)
	}
}
