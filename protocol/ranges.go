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

package protocol

import "fmt"

// Inclusive byte interval of a file
type Range struct {
	Start uint64
	End   uint64
}

// Amount of bytes covered by the range
func (r Range) Len() uint64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Checks 0 <= start <= end < size
func (r Range) Within(size uint64) bool {
	return r.Start <= r.End && r.End < size
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d]", r.Start, r.End)
}

// Returns the range starting at start that is at most width bytes wide
// and does not cross the end of a file of given size.
// start must be less than size
func NextRange(start uint64, size uint64, width uint64) Range {
	if width == 0 {
		width = MaxChunkWidth
	}

	end := start + width - 1
	if end >= size || end < start {
		end = size - 1
	}

	return Range{Start: start, End: end}
}

// Splits a file of given size into consecutive ranges that tile [0, size-1]
// with no gaps or overlaps. A zero-sized file has no ranges
func SplitRanges(size uint64, width uint64) []Range {
	var ranges []Range

	var start uint64 = 0
	for start < size {
		r := NextRange(start, size, width)
		ranges = append(ranges, r)
		start = r.End + 1
	}

	return ranges
}
