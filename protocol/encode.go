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

// Methods to construct ready to send messages defined in protocol
package protocol

import (
	"encoding/base64"
	"strconv"
	"strings"
)

func (m Download) tokens() []string {
	return []string{string(KeywordDownload), m.Filename}
}

func (m DownloadOk) tokens() []string {
	return []string{
		string(KeywordOk), m.Filename,
		string(KeywordSize), strconv.FormatUint(m.Size, 10),
		string(KeywordPort), strconv.FormatUint(uint64(m.Port), 10),
	}
}

func (m DownloadErr) tokens() []string {
	return []string{string(KeywordErr), m.Filename, string(KeywordNotFound)}
}

func (m ChunkGet) tokens() []string {
	return []string{
		string(KeywordFile), m.Filename, string(KeywordGet),
		string(KeywordStart), strconv.FormatUint(m.Start, 10),
		string(KeywordEnd), strconv.FormatUint(m.End, 10),
	}
}

func (m ChunkOk) tokens() []string {
	return []string{
		string(KeywordFile), m.Filename, string(KeywordChunkOk),
		string(KeywordStart), strconv.FormatUint(m.Start, 10),
		string(KeywordEnd), strconv.FormatUint(m.End, 10),
		string(KeywordData), base64.StdEncoding.EncodeToString(m.Data),
	}
}

func (m Close) tokens() []string {
	return []string{string(KeywordFile), m.Filename, string(KeywordClose)}
}

func (m CloseOk) tokens() []string {
	return []string{string(KeywordFile), m.Filename, string(KeywordCloseOk)}
}

// Converts given message into ready-to-transfer bytes.
// Messages exceeding MaxPacketSize are not constructed
func Encode(message Message) ([]byte, error) {
	if !ValidFilename(message.File()) {
		return nil, ErrorInvalidFilename
	}

	encoded := strings.Join(message.tokens(), Delimiter)
	if len(encoded) > MaxPacketSize {
		return nil, ErrorPacketTooBig
	}

	return []byte(encoded), nil
}
