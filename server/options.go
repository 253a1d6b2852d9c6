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
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/Unbewohnte/udpft/protocol"
	log "github.com/sirupsen/logrus"
)

// Inclusive range of ports data channels are bound on
type PortRange struct {
	Min uint16
	Max uint16
}

// Default range of data ports
var DefaultPorts PortRange = PortRange{Min: protocol.DataPortMin, Max: protocol.DataPortMax}

// Amount of ports in the range
func (r PortRange) Size() int {
	if r.Max < r.Min {
		return 0
	}
	return int(r.Max) - int(r.Min) + 1
}

func (r PortRange) Contains(port uint16) bool {
	return port >= r.Min && port <= r.Max
}

func (r PortRange) String() string {
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

// Parses "min-max" or a single "port"
func ParsePortRange(s string) (PortRange, error) {
	low, high, found := strings.Cut(strings.TrimSpace(s), "-")
	if !found {
		high = low
	}

	first, err := strconv.ParseUint(strings.TrimSpace(low), 10, 16)
	if err != nil {
		return PortRange{}, fmt.Errorf("invalid port range %q: %w", s, err)
	}
	last, err := strconv.ParseUint(strings.TrimSpace(high), 10, 16)
	if err != nil {
		return PortRange{}, fmt.Errorf("invalid port range %q: %w", s, err)
	}

	if first == 0 || last < first {
		return PortRange{}, fmt.Errorf("invalid port range %q", s)
	}

	return PortRange{Min: uint16(first), Max: uint16(last)}, nil
}

// Server-side options
type Options struct {
	Port         uint16        // welcome port; 0 picks any free port
	Root         string        // directory the files are served from; "." if empty
	Ports        PortRange     // data ports; DefaultPorts if zero
	PollInterval time.Duration // bounded wait of every socket; protocol.PollInterval if 0
	IdleTimeout  time.Duration // close sessions idle for that long; 0 disables
	Digest       bool          // log a digest of every served file
	Logger       log.FieldLogger
	Rand         *rand.Rand // picks data ports; seeded from the clock if nil
}

func (options *Options) withDefaults() Options {
	filled := Options{}
	if options != nil {
		filled = *options
	}

	if filled.Root == "" {
		filled.Root = "."
	}
	if filled.Ports == (PortRange{}) {
		filled.Ports = DefaultPorts
	}
	if filled.PollInterval <= 0 {
		filled.PollInterval = protocol.PollInterval
	}
	if filled.Logger == nil {
		filled.Logger = log.StandardLogger()
	}
	if filled.Rand == nil {
		filled.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return filled
}
