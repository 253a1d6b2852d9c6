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

package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Unbewohnte/udpft/protocol"
	log "github.com/sirupsen/logrus"
)

// Called every time an attempt of an exchange runs out of time.
// attempt starts at 1, timeout is how long that attempt waited
type TimeoutFunc func(attempt int, timeout time.Duration)

// Options to configure the exchanger
type ExchangerOptions struct {
	Retries        int           // attempts per exchange; protocol.MaxRetries if 0
	InitialTimeout time.Duration // wait of the first attempt; protocol.InitialTimeout if 0
	Logger         log.FieldLogger
	OnTimeout      TimeoutFunc
}

// Sends requests and waits for the responses over a single socket,
// retrying with exponential backoff. Not safe for concurrent use
type Exchanger struct {
	conn           net.PacketConn
	retries        int
	initialTimeout time.Duration
	logger         log.FieldLogger
	onTimeout      TimeoutFunc
	buffer         []byte
}

// Creates a new exchanger working over conn. options can be nil
func NewExchanger(conn net.PacketConn, options *ExchangerOptions) *Exchanger {
	exchanger := Exchanger{
		conn:           conn,
		retries:        protocol.MaxRetries,
		initialTimeout: protocol.InitialTimeout,
		logger:         log.StandardLogger(),
		buffer:         make([]byte, protocol.MaxPacketSize),
	}

	if options != nil {
		if options.Retries > 0 {
			exchanger.retries = options.Retries
		}
		if options.InitialTimeout > 0 {
			exchanger.initialTimeout = options.InitialTimeout
		}
		if options.Logger != nil {
			exchanger.logger = options.Logger
		}
		exchanger.onTimeout = options.OnTimeout
	}

	return &exchanger
}

// Returns the waits of each attempt: t, 2t, 4t, ... 2^(attempts-1)t
func Backoff(initial time.Duration, attempts int) []time.Duration {
	schedule := make([]time.Duration, 0, attempts)

	timeout := initial
	for i := 0; i < attempts; i++ {
		schedule = append(schedule, timeout)
		timeout *= 2
	}

	return schedule
}

// Sends request to destination and waits for exactly one datagram in response.
// An attempt that runs out of time is repeated with a doubled wait until the retry
// ceiling is reached, then ErrorTimeout is returned. Any other socket error aborts
// immediately with *Error. Late responses to earlier attempts are not filtered out
func (e *Exchanger) Exchange(ctx context.Context, destination net.Addr, request []byte) ([]byte, error) {
	// interrupt a pending read as soon as the context is done
	stop := context.AfterFunc(ctx, func() {
		e.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for attempt, timeout := range Backoff(e.initialTimeout, e.retries) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		_, err := e.conn.WriteTo(request, destination)
		if err != nil {
			e.logger.Errorf("Send to %s failed: %s", destination, err)
			return nil, &Error{Op: "send", Addr: destination, Err: err}
		}

		err = e.conn.SetReadDeadline(time.Now().Add(timeout))
		if err != nil {
			return nil, &Error{Op: "set deadline", Addr: destination, Err: err}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, _, err := e.conn.ReadFrom(e.buffer)
		if err == nil {
			response := make([]byte, n)
			copy(response, e.buffer[:n])
			return response, nil
		}

		if !IsTimeout(err) {
			e.logger.Errorf("Receive from %s failed: %s", destination, err)
			return nil, &Error{Op: "receive", Addr: destination, Err: err}
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		e.logger.Warnf("Timeout, retrying %d/%d, timeout: %s", attempt+1, e.retries, timeout)
		if e.onTimeout != nil {
			e.onTimeout(attempt+1, timeout)
		}
	}

	e.logger.Warnf("Max retries reached for %s, giving up", destination)

	return nil, ErrorTimeout
}

// Exchanges protocol messages instead of raw bytes. A response that cannot be
// decoded is returned as an error wrapping protocol.ErrorMalformed
func (e *Exchanger) Request(ctx context.Context, destination net.Addr, request protocol.Message) (protocol.Message, error) {
	datagram, err := protocol.Encode(request)
	if err != nil {
		return nil, err
	}

	response, err := e.Exchange(ctx, destination, datagram)
	if err != nil {
		return nil, err
	}

	message, err := protocol.Decode(response)
	if err != nil {
		return nil, fmt.Errorf("response from %s: %w", destination, err)
	}

	return message, nil
}
