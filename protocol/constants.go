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

// This file contains global constants of the protocol
package protocol

import "time"

// MaxPacketSize.
// How many bytes can contain one datagram at maximum
// (messages bigger than MaxPacketSize are invalid and will not be sent)
const MaxPacketSize int = 65535

// MaxChunkWidth.
// How many file bytes one FILE GET request asks for at maximum
const MaxChunkWidth uint64 = 1000

// MaxRetries.
// How many times one request is sent before the exchange gives up
const MaxRetries int = 5

// InitialTimeout.
// How long the first attempt of an exchange waits for a response. Doubled on every retry
const InitialTimeout time.Duration = time.Second

// PollInterval.
// Bounded receive wait of the server sockets, so they can notice a shutdown
const PollInterval time.Duration = time.Second

// DataPortMin and DataPortMax.
// Inclusive range of ports the server binds per-transfer data channels on
const (
	DataPortMin uint16 = 50000
	DataPortMax uint16 = 51000
)

// Delimiter.
// Separates the tokens of a message.
// ie: DOWNLOAD img.png
const Delimiter string = " "
