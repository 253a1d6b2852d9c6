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
	"fmt"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/Unbewohnte/udpft/addr"
	"github.com/Unbewohnte/udpft/fsys"
	"github.com/Unbewohnte/udpft/protocol"
	"github.com/Unbewohnte/udpft/transport"
	log "github.com/sirupsen/logrus"
)

// Accepts DOWNLOAD requests on the welcome port and hands every accepted
// transfer over to its own worker
type Server struct {
	options  Options
	conn     net.PacketConn // welcome socket
	logger   log.FieldLogger
	rng      *rand.Rand // only touched by the welcome loop
	registry *registry
}

// Creates a new server with the welcome socket already bound
func NewServer(options *Options) (*Server, error) {
	filled := options.withDefaults()

	stats, err := os.Stat(filled.Root)
	if err != nil {
		return nil, fmt.Errorf("invalid serving root: %w", err)
	}
	if !stats.IsDir() {
		return nil, fmt.Errorf("invalid serving root %s: not a directory", filled.Root)
	}
	if filled.Ports.Size() == 0 {
		return nil, fmt.Errorf("empty data port range %s", filled.Ports)
	}

	conn, err := transport.Listen(filled.Port)
	if err != nil {
		return nil, err
	}

	server := Server{
		options:  filled,
		conn:     conn,
		logger:   filled.Logger,
		rng:      filled.Rand,
		registry: newRegistry(),
	}

	return &server, nil
}

// Address of the welcome socket
func (server *Server) Addr() net.Addr {
	return server.conn.LocalAddr()
}

// Amount of transfers currently being served
func (server *Server) Sessions() int {
	return server.registry.count()
}

// Runs the welcome loop until ctx is done or the welcome socket is closed.
// Workers are stopped and waited for on return, the welcome socket is closed
func (server *Server) Serve(ctx context.Context) error {
	defer server.registry.wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer server.conn.Close()

	stop := context.AfterFunc(ctx, func() {
		server.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	port := server.conn.LocalAddr().(*net.UDPAddr).Port
	localIP, err := addr.GetLocal()
	if err != nil {
		server.logger.Infof("Serving %s on port %d", server.options.Root, port)
	} else {
		server.logger.Infof("Serving %s on %s:%d", server.options.Root, localIP, port)
	}

	buffer := make([]byte, protocol.MaxPacketSize)
	for {
		if ctx.Err() != nil {
			server.logger.Infof("Shutting down, waiting for %d session(s)", server.registry.count())
			return nil
		}

		datagram, from, err := transport.Receive(server.conn, buffer, server.options.PollInterval)
		if err != nil {
			if transport.IsTimeout(err) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				server.logger.Errorf("Welcome socket closed, shutting down %d session(s)", server.registry.count())
				return err
			}
			// errors of one datagram (ie: an ICMP unreachable on Windows) leave the socket usable
			server.logger.Errorf("Server error: %s", err)
			continue
		}

		message, err := protocol.Decode(datagram)
		if err != nil {
			server.logger.Debugf("Ignoring a datagram from %s: %s", from, err)
			continue
		}

		switch message := message.(type) {
		case protocol.Download:
			server.accept(ctx, message.Filename, from)

		default:
			server.logger.Debugf("Ignoring %T from %s on the welcome port", message, from)
		}
	}
}

// Answers one DOWNLOAD request. The worker is bound before the reply
// is sent so the port is live by the time the client learns it
func (server *Server) accept(ctx context.Context, filename string, client net.Addr) {
	logger := server.logger.WithFields(log.Fields{
		"file":   filename,
		"client": client.String(),
	})

	file, err := fsys.GetFile(server.options.Root, filename)
	if err == nil {
		err = file.Open()
	}
	if err != nil {
		logger.Warnf("Cannot serve: %s", err)
		err = transport.SendMessage(server.conn, client, protocol.DownloadErr{Filename: filename})
		if err != nil {
			logger.Errorf("Could not reply: %s", err)
		}
		return
	}

	conn, port, err := bindDataPort(server.rng, server.options.Ports, server.registry.exclusion())
	if err != nil {
		// no reply. The client retries and may get a port once a session closes
		file.Close()
		logger.Errorf("Could not bind a data port: %s", err)
		return
	}

	session := newSession(file, client, conn, port, &server.options)
	server.registry.add(session)

	go func() {
		defer server.registry.remove(session)
		session.serve(ctx)
	}()

	err = transport.SendMessage(server.conn, client, protocol.DownloadOk{
		Filename: filename,
		Size:     file.Size,
		Port:     port,
	})
	if err != nil {
		// the client will ask again and get a fresh session; this one idles
		// until shutdown or the idle timeout
		session.logger.Errorf("Could not reply: %s", err)
		return
	}

	session.logger.Infof("Accepted (%d bytes)", file.Size)
}
