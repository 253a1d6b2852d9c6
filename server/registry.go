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

import "sync"

// Keeps track of live transfer workers
type registry struct {
	mutex    sync.Mutex
	sessions map[uint16]*session
	wg       sync.WaitGroup
}

func newRegistry() *registry {
	return &registry{
		sessions: make(map[uint16]*session),
	}
}

// Ports bound by live workers. The returned set belongs to the caller
func (r *registry) exclusion() map[uint16]struct{} {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ports := make(map[uint16]struct{}, len(r.sessions))
	for port := range r.sessions {
		ports[port] = struct{}{}
	}

	return ports
}

func (r *registry) add(s *session) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.sessions[s.port] = s
	r.wg.Add(1)
}

func (r *registry) remove(s *session) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.sessions[s.port] != s {
		return
	}
	delete(r.sessions, s.port)
	r.wg.Done()
}

func (r *registry) count() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return len(r.sessions)
}

// Blocks until every worker has finished
func (r *registry) wait() {
	r.wg.Wait()
}
