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

package fsys

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Reads the names of the files to download, one per line.
// Surrounding whitespace is trimmed, blank lines are skipped
func LoadFileList(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file list: %w", err)
	}
	defer file.Close()

	return ReadFileList(file)
}

func ReadFileList(reader io.Reader) ([]string, error) {
	var names []string

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		names = append(names, name)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read file list: %w", err)
	}

	return names, nil
}
