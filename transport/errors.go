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
	"errors"
	"fmt"
	"net"
	"os"
)

var ErrorTimeout error = fmt.Errorf("no response within the retry budget")

// Socket-level failure that is not a timeout. Aborts an exchange right away
type Error struct {
	Op   string
	Addr net.Addr
	Err  error
}

func (e *Error) Error() string {
	if e.Addr == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Addr, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Tells whether err is an expired read deadline
func IsTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
