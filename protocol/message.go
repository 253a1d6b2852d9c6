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

// This file describes the messages of the protocol. Every message is one datagram
// of space-delimited ASCII tokens.
package protocol

import (
	"fmt"
	"strings"
	"unicode"
)

var (
	ErrorMalformed       error = fmt.Errorf("malformed message")
	ErrorInvalidFilename error = fmt.Errorf("invalid filename")
	ErrorPacketTooBig    error = fmt.Errorf("the message is too big")
)

// Any of the messages defined below
type Message interface {
	// name of the file the message is about
	File() string
	tokens() []string
}

// DOWNLOAD <filename>
type Download struct {
	Filename string
}

// OK <filename> SIZE <bytes> PORT <dataPort>
type DownloadOk struct {
	Filename string
	Size     uint64
	Port     uint16
}

// ERR <filename> NOT_FOUND
type DownloadErr struct {
	Filename string
}

// FILE <filename> GET START <start> END <end>
type ChunkGet struct {
	Filename string
	Start    uint64
	End      uint64
}

// FILE <filename> OK START <start> END <end> DATA <base64>
type ChunkOk struct {
	Filename string
	Start    uint64
	End      uint64
	Data     []byte
}

// FILE <filename> CLOSE
type Close struct {
	Filename string
}

// FILE <filename> CLOSE_OK
type CloseOk struct {
	Filename string
}

func (m Download) File() string { return m.Filename }
func (m DownloadOk) File() string { return m.Filename }
func (m DownloadErr) File() string { return m.Filename }
func (m ChunkGet) File() string { return m.Filename }
func (m ChunkOk) File() string { return m.Filename }
func (m Close) File() string { return m.Filename }
func (m CloseOk) File() string { return m.Filename }

// Range of the request
func (m ChunkGet) Range() Range { return Range{Start: m.Start, End: m.End} }

// Range the server claims to have answered with
func (m ChunkOk) Range() Range { return Range{Start: m.Start, End: m.End} }

// Tells whether the payload is exactly as long as the claimed range.
// A decoded ChunkOk is never truncated or padded, so this is the caller`s
// integrity check
func (m ChunkOk) Complete() bool {
	if m.End < m.Start {
		return false
	}
	return uint64(len(m.Data)) == m.End-m.Start+1
}

// Checks that the filename can travel as a single token
func ValidFilename(filename string) bool {
	if filename == "" {
		return false
	}
	return strings.IndexFunc(filename, unicode.IsSpace) == -1
}
