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
	"fmt"
	"io"
)

// Prints a dot per percent of every download, one line per file
type DotPrinter struct {
	out     io.Writer
	started bool
	printed uint64
}

func NewDotPrinter(out io.Writer) *DotPrinter {
	return &DotPrinter{out: out}
}

// Meant as Options.OnProgress
func (p *DotPrinter) Update(filename string, received uint64, size uint64) {
	if !p.started {
		p.started = true
		fmt.Fprintf(p.out, "Downloading %s ", filename)
	}

	percent := received * 100 / size
	for ; p.printed < percent; p.printed++ {
		fmt.Fprint(p.out, ".")
	}
}

// Meant as Options.OnDone. Ends the line of the download, whatever its outcome
func (p *DotPrinter) Done(result Result) {
	if p.started {
		if result.Err != nil {
			fmt.Fprint(p.out, " failed")
		}
		fmt.Fprintln(p.out)
	}

	p.started = false
	p.printed = 0
}
