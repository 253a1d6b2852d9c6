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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrorNotFile     error = fmt.Errorf("not a file")
	ErrorOutsideRoot error = fmt.Errorf("path leads outside of the root directory")
	ErrorShortRead   error = fmt.Errorf("read less bytes than requested")
)

// A file opened for serving its byte ranges
type File struct {
	Name    string // as requested by the client
	Path    string // absolute
	Size    uint64
	Handler *os.File // Set when .Open() is called
}

// Joins name onto root lexically, refusing anything that escapes root.
// An absolute name is treated as relative to root
func Confine(root string, name string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}

	joined := filepath.Join(absRoot, filepath.FromSlash(name))
	if !within(absRoot, joined) {
		return "", ErrorOutsideRoot
	}

	return joined, nil
}

// Finds the served file with given name under root, following symlinks.
// The target of a symlink must stay under root as well
func Resolve(root string, name string) (string, error) {
	path, err := Confine(root, name)
	if err != nil {
		return "", err
	}

	realRoot, err := filepath.EvalSymlinks(filepath.Clean(root))
	if err != nil {
		return "", err
	}
	realRoot, err = filepath.Abs(realRoot)
	if err != nil {
		return "", err
	}

	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", err
	}

	if !within(realRoot, realPath) {
		return "", ErrorOutsideRoot
	}

	return realPath, nil
}

func within(root string, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Get general information about a served file with the
// future ability to open it.
// NOTE that Handler field is nil BY DEFAULT until you
// manually call a (file *File) Open() function to open it !
func GetFile(root string, name string) (*File, error) {
	path, err := Resolve(root, name)
	if err != nil {
		return nil, err
	}

	stats, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	// directories, devices and the like are not served
	if !stats.Mode().IsRegular() {
		return nil, ErrorNotFile
	}

	file := File{
		Name:    name,
		Path:    path,
		Size:    uint64(stats.Size()),
		Handler: nil,
	}

	return &file, nil
}

// Opens file for reading only
func (file *File) Open() error {
	handler, err := os.Open(file.Path)
	if err != nil {
		return err
	}
	file.Handler = handler

	return nil
}

// Reads bytes [start, end] inclusive. Fails with ErrorShortRead if the
// file ended earlier, which happens when it shrinks while being served
func (file *File) ReadRange(start uint64, end uint64) ([]byte, error) {
	if file.Handler == nil {
		return nil, os.ErrClosed
	}
	if end < start {
		return nil, fmt.Errorf("invalid range [%d, %d]", start, end)
	}

	buffer := make([]byte, end-start+1)
	read, err := file.Handler.ReadAt(buffer, int64(start))
	if read < len(buffer) {
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("could not read %s: %w", file.Name, err)
		}
		return nil, ErrorShortRead
	}

	return buffer, nil
}

// Releases the handler. Safe to call more than once
func (file *File) Close() error {
	if file.Handler == nil {
		return nil
	}

	err := file.Handler.Close()
	file.Handler = nil

	return err
}
