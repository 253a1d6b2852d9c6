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

package addr

import (
	"fmt"
	"net"
)

var ErrorNoAddress error = fmt.Errorf("no suitable local address")

// Get local IP address; from https://stackoverflow.com/a/37382208.
// Dialing UDP sends nothing, it only makes the kernel pick an outbound interface.
// Hosts without a default route fall back to the first non-loopback interface address
func GetLocal() (net.IP, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err == nil {
		defer conn.Close()
		return conn.LocalAddr().(*net.UDPAddr).IP, nil
	}

	addrs, ifErr := net.InterfaceAddrs()
	if ifErr != nil {
		return nil, err
	}

	for _, address := range addrs {
		ipNet, ok := address.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip := ipNet.IP.To4(); ip != nil {
			return ip, nil
		}
	}

	return nil, ErrorNoAddress
}
