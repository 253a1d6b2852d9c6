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
	"fmt"
	"os"
	"path/filepath"
)

// Creates (or truncates) the file a download is written to. name may contain
// subdirectories, they are created under dir as needed
func CreateOutput(dir string, name string) (*os.File, error) {
	path, err := Confine(dir, name)
	if err != nil {
		return nil, err
	}

	err = os.MkdirAll(filepath.Dir(path), os.ModePerm)
	if err != nil {
		return nil, fmt.Errorf("could not create directories for %s: %w", name, err)
	}

	output, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not create %s: %w", path, err)
	}

	return output, nil
}

// Closes and deletes a partially written output
func RemoveOutput(output *os.File) error {
	if output == nil {
		return nil
	}

	output.Close()

	err := os.Remove(output.Name())
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
