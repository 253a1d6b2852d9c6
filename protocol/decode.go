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

// Methods to decode received datagrams into messages defined in protocol
package protocol

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrorMalformed, fmt.Sprintf(format, args...))
}

// checks that tokens[index] is exactly the expected keyword
func expectKeyword(tokens []string, index int, keyword Keyword) error {
	if tokens[index] != string(keyword) {
		return malformed("expected %s at token %d, got %q", keyword, index, tokens[index])
	}
	return nil
}

func parseNumber(token string, bits int) (uint64, error) {
	number, err := strconv.ParseUint(token, 10, bits)
	if err != nil {
		return 0, malformed("%q is not a non-negative integer", token)
	}
	return number, nil
}

// Converts datagram bytes into one of the protocol messages.
// Returns an error wrapping ErrorMalformed if the datagram does not follow the grammar
func Decode(datagram []byte) (Message, error) {
	tokens := strings.Fields(string(datagram))
	if len(tokens) < 2 {
		return nil, malformed("too few tokens (%d)", len(tokens))
	}

	switch Keyword(tokens[0]) {
	case KeywordDownload:
		return Download{Filename: tokens[1]}, nil

	case KeywordOk:
		return decodeDownloadOk(tokens)

	case KeywordErr:
		if len(tokens) < 3 {
			return nil, malformed("ERR needs 3 tokens, got %d", len(tokens))
		}
		if err := expectKeyword(tokens, 2, KeywordNotFound); err != nil {
			return nil, err
		}
		return DownloadErr{Filename: tokens[1]}, nil

	case KeywordFile:
		return decodeFileMessage(tokens)

	default:
		return nil, malformed("unknown keyword %q", tokens[0])
	}
}

// OK <filename> SIZE <bytes> PORT <dataPort>
func decodeDownloadOk(tokens []string) (Message, error) {
	if len(tokens) < 6 {
		return nil, malformed("OK needs 6 tokens, got %d", len(tokens))
	}
	if err := expectKeyword(tokens, 2, KeywordSize); err != nil {
		return nil, err
	}
	if err := expectKeyword(tokens, 4, KeywordPort); err != nil {
		return nil, err
	}

	size, err := parseNumber(tokens[3], 64)
	if err != nil {
		return nil, err
	}
	port, err := parseNumber(tokens[5], 16)
	if err != nil {
		return nil, err
	}

	return DownloadOk{
		Filename: tokens[1],
		Size:     size,
		Port:     uint16(port),
	}, nil
}

// FILE <filename> ...
func decodeFileMessage(tokens []string) (Message, error) {
	if len(tokens) < 3 {
		return nil, malformed("FILE needs at least 3 tokens, got %d", len(tokens))
	}
	filename := tokens[1]

	switch Keyword(tokens[2]) {
	case KeywordClose:
		return Close{Filename: filename}, nil

	case KeywordCloseOk:
		return CloseOk{Filename: filename}, nil

	case KeywordGet:
		if len(tokens) < 7 {
			return nil, malformed("FILE GET needs 7 tokens, got %d", len(tokens))
		}
		start, end, err := decodeBounds(tokens)
		if err != nil {
			return nil, err
		}
		return ChunkGet{Filename: filename, Start: start, End: end}, nil

	case KeywordChunkOk:
		if len(tokens) < 8 {
			return nil, malformed("FILE OK needs 8 tokens, got %d", len(tokens))
		}
		start, end, err := decodeBounds(tokens)
		if err != nil {
			return nil, err
		}
		if err := expectKeyword(tokens, 7, KeywordData); err != nil {
			return nil, err
		}

		// everything after DATA is the payload
		data, err := base64.StdEncoding.DecodeString(strings.Join(tokens[8:], ""))
		if err != nil {
			return nil, malformed("bad base64 payload: %s", err)
		}

		return ChunkOk{Filename: filename, Start: start, End: end, Data: data}, nil

	default:
		return nil, malformed("unknown FILE action %q", tokens[2])
	}
}

// START <start> END <end> at tokens 3..6
func decodeBounds(tokens []string) (uint64, uint64, error) {
	if err := expectKeyword(tokens, 3, KeywordStart); err != nil {
		return 0, 0, err
	}
	if err := expectKeyword(tokens, 5, KeywordEnd); err != nil {
		return 0, 0, err
	}

	start, err := parseNumber(tokens[4], 64)
	if err != nil {
		return 0, 0, err
	}
	end, err := parseNumber(tokens[6], 64)
	if err != nil {
		return 0, 0, err
	}

	return start, end, nil
}
