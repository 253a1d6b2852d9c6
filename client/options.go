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

package client

import (
	"time"

	"github.com/Unbewohnte/udpft/protocol"
	"github.com/Unbewohnte/udpft/transport"
	log "github.com/sirupsen/logrus"
)

// MaxDesync.
// How many times in a row a chunk is re-requested after out of sync answers
const MaxDesync int = 5

// Called after every received chunk
type ProgressFunc func(filename string, received uint64, size uint64)

// Called once at the end of every download, failed or not
type DoneFunc func(result Result)

// Client-side options
type Options struct {
	ChunkWidth     uint64        // bytes per GET; protocol.MaxChunkWidth if 0
	Retries        int           // attempts per request; protocol.MaxRetries if 0
	InitialTimeout time.Duration // protocol.InitialTimeout if 0
	MaxDesync      int           // MaxDesync if 0
	DownloadsPath  string        // where to download; "." if empty
	Logger         log.FieldLogger
	OnProgress     ProgressFunc
	OnDone         DoneFunc
	OnTimeout      transport.TimeoutFunc
}

func (options *Options) withDefaults() Options {
	filled := Options{}
	if options != nil {
		filled = *options
	}

	if filled.ChunkWidth == 0 || filled.ChunkWidth > protocol.MaxChunkWidth {
		filled.ChunkWidth = protocol.MaxChunkWidth
	}
	if filled.Retries <= 0 {
		filled.Retries = protocol.MaxRetries
	}
	if filled.InitialTimeout <= 0 {
		filled.InitialTimeout = protocol.InitialTimeout
	}
	if filled.MaxDesync <= 0 {
		filled.MaxDesync = MaxDesync
	}
	if filled.DownloadsPath == "" {
		filled.DownloadsPath = "."
	}
	if filled.Logger == nil {
		filled.Logger = log.StandardLogger()
	}

	return filled
}
