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

// This file describes the keywords of the protocol and how to use them
package protocol

type Keyword string

// Leading keywords

// DOWNLOAD.
// Sent by client to the server`s welcome port. Asks for a file.
// ie: DOWNLOAD img.png
const KeywordDownload Keyword = "DOWNLOAD"

// OK.
// Sent by server from the welcome port in case the file exists and
// a data channel has been bound for it. Tells the size of the file
// and the port of the data channel.
// ie: OK img.png SIZE 2500 PORT 50123
const KeywordOk Keyword = "OK"

// ERR.
// Sent by server from the welcome port when there is no such file.
// ie: ERR img.png NOT_FOUND
const KeywordErr Keyword = "ERR"

// FILE.
// Prefix of every message that travels through a data channel. The
// filename always follows, then the action.
// ie: FILE img.png CLOSE
const KeywordFile Keyword = "FILE"

// Actions of FILE messages

// GET.
// Sent by client to the data port. Asks for an inclusive byte range.
// ie: FILE img.png GET START 0 END 999
const KeywordGet Keyword = "GET"

// OK (data channel).
// Sent by server in response to GET with exactly the requested range,
// the bytes are base64 encoded.
// ie: FILE img.png OK START 0 END 999 DATA aGVsbG8=
const KeywordChunkOk Keyword = "OK"

// CLOSE.
// Sent by client when the whole file has been received. The data channel
// is torn down after answering it.
// ie: FILE img.png CLOSE
const KeywordClose Keyword = "CLOSE"

// CLOSE_OK.
// Sent by server as the last message of a data channel.
// ie: FILE img.png CLOSE_OK
const KeywordCloseOk Keyword = "CLOSE_OK"

// Field labels
const (
	KeywordSize     Keyword = "SIZE"
	KeywordPort     Keyword = "PORT"
	KeywordStart    Keyword = "START"
	KeywordEnd      Keyword = "END"
	KeywordData     Keyword = "DATA"
	KeywordNotFound Keyword = "NOT_FOUND"
)
