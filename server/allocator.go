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
	"errors"
	"fmt"
	"math/rand"
	"net"

	"github.com/Unbewohnte/udpft/transport"
)

var ErrorNoFreePort error = fmt.Errorf("no free port left in the range")

// Picks a pseudo-random port of ports that is not in exclude.
// Depends only on its arguments, so a seeded rng gives a reproducible choice
func AllocatePort(rng *rand.Rand, ports PortRange, exclude map[uint16]struct{}) (uint16, error) {
	candidates := make([]uint16, 0, ports.Size())
	for i := 0; i < ports.Size(); i++ {
		port := ports.Min + uint16(i)
		if _, taken := exclude[port]; taken {
			continue
		}
		candidates = append(candidates, port)
	}

	if len(candidates) == 0 {
		return 0, ErrorNoFreePort
	}

	return candidates[rng.Intn(len(candidates))], nil
}

// Binds a data socket on a free port. Ports that fail to bind (taken by
// another process) are excluded and another one is tried until the range runs out
func bindDataPort(rng *rand.Rand, ports PortRange, exclude map[uint16]struct{}) (*net.UDPConn, uint16, error) {
	for {
		port, err := AllocatePort(rng, ports, exclude)
		if err != nil {
			return nil, 0, err
		}

		conn, err := transport.Listen(port)
		if err == nil {
			return conn, port, nil
		}

		var transportErr *transport.Error
		if !errors.As(err, &transportErr) {
			return nil, 0, err
		}

		exclude[port] = struct{}{}
	}
}
