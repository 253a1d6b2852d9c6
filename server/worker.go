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
	"net"
	"time"

	"github.com/Unbewohnte/udpft/checksum"
	"github.com/Unbewohnte/udpft/fsys"
	"github.com/Unbewohnte/udpft/protocol"
	"github.com/Unbewohnte/udpft/transport"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// One accepted transfer. Owned by the goroutine running serve
type session struct {
	id           string
	file         *fsys.File
	client       net.Addr // only datagrams from here are served
	port         uint16
	conn         net.PacketConn
	logger       log.FieldLogger
	pollInterval time.Duration
	idleTimeout  time.Duration
	digest       bool
}

func newSession(file *fsys.File, client net.Addr, conn net.PacketConn, port uint16, options *Options) *session {
	id := uuid.NewString()

	return &session{
		id:     id,
		file:   file,
		client: client,
		port:   port,
		conn:   conn,
		logger: options.Logger.WithFields(log.Fields{
			"session": id,
			"file":    file.Name,
			"client":  client.String(),
			"port":    port,
		}),
		pollInterval: options.PollInterval,
		idleTimeout:  options.IdleTimeout,
		digest:       options.Digest,
	}
}

// Serves chunk requests until the client closes the transfer, the session
// idles out or ctx is done. Releases the socket and the file on return
func (s *session) serve(ctx context.Context) {
	defer s.file.Close()
	defer s.conn.Close()

	stop := context.AfterFunc(ctx, func() {
		s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if s.digest {
		digest, err := checksum.GetChecksum(s.file.Handler)
		if err != nil {
			s.logger.Warnf("Could not compute digest: %s", err)
		} else {
			s.logger.Debugf("blake3 %s", digest)
		}
	}

	buffer := make([]byte, protocol.MaxPacketSize)
	lastActivity := time.Now()
	for {
		if ctx.Err() != nil {
			s.logger.Infof("Server is shutting down, session dropped")
			return
		}
		if s.idleTimeout > 0 && time.Since(lastActivity) >= s.idleTimeout {
			s.logger.Warnf("Idle for %s, session dropped", s.idleTimeout)
			return
		}

		datagram, from, err := transport.Receive(s.conn, buffer, s.pollInterval)
		if err != nil {
			if transport.IsTimeout(err) {
				continue
			}
			s.logger.Errorf("Session failed: %s", err)
			return
		}

		if !transport.SameAddr(from, s.client) {
			s.logger.Debugf("Ignoring a datagram from foreign %s", from)
			continue
		}

		message, err := protocol.Decode(datagram)
		if err != nil {
			s.logger.Debugf("Ignoring: %s", err)
			continue
		}
		if message.File() != s.file.Name {
			s.logger.Debugf("Ignoring %T for another file %q", message, message.File())
			continue
		}

		switch message := message.(type) {
		case protocol.ChunkGet:
			lastActivity = time.Now()
			s.serveChunk(message)

		case protocol.Close:
			err = transport.SendMessage(s.conn, s.client, protocol.CloseOk{Filename: s.file.Name})
			if err != nil {
				s.logger.Warnf("Could not confirm close: %s", err)
			}
			s.logger.Infof("Closed")
			return

		default:
			s.logger.Debugf("Ignoring %T", message)
		}
	}
}

// Answers one GET. Requests that cannot be answered exactly are dropped
// without a reply, the client will retry or give up on its own
func (s *session) serveChunk(request protocol.ChunkGet) {
	requested := request.Range()

	if !requested.Within(s.file.Size) {
		s.logger.Debugf("Dropping out of bounds request %s", requested)
		return
	}
	if requested.Len() > uint64(protocol.MaxPacketSize) {
		s.logger.Debugf("Dropping request %s, it does not fit a datagram", requested)
		return
	}

	data, err := s.file.ReadRange(request.Start, request.End)
	if err != nil {
		s.logger.Warnf("Dropping request %s: %s", requested, err)
		return
	}

	err = transport.SendMessage(s.conn, s.client, protocol.ChunkOk{
		Filename: s.file.Name,
		Start:    request.Start,
		End:      request.End,
		Data:     data,
	})
	switch {
	case errors.Is(err, protocol.ErrorPacketTooBig):
		s.logger.Debugf("Dropping request %s, the reply does not fit a datagram", requested)
	case err != nil:
		s.logger.Warnf("Could not send %s: %s", requested, err)
	default:
		s.logger.Debugf("Sent %s", requested)
	}
}
