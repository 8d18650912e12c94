// Package server tracks live connections and their room memberships in the
// Registry owned by the hub loop.
package server

import "sort"

// Registry maps live clients to the rooms they belong to. Rooms exist only
// while they have members. A Registry is not safe for concurrent use; the hub
// confines it to its event loop.
type Registry struct {
	clients map[*Client]map[string]struct{}
	rooms   map[string]map[*Client]struct{}
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[*Client]map[string]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
	}
}

// Add registers c. It returns false if c was already present.
func (r *Registry) Add(c *Client) bool {
	if _, ok := r.clients[c]; ok {
		return false
	}
	r.clients[c] = make(map[string]struct{})
	return true
}

// Remove drops c and every membership it holds, returning the rooms it was in.
func (r *Registry) Remove(c *Client) ([]string, bool) {
	memberships, ok := r.clients[c]
	if !ok {
		return nil, false
	}

	rooms := make([]string, 0, len(memberships))
	for room := range memberships {
		r.removeMember(room, c)
		rooms = append(rooms, room)
	}
	delete(r.clients, c)

	sort.Strings(rooms)
	return rooms, true
}

// Contains reports whether c is registered.
func (r *Registry) Contains(c *Client) bool {
	_, ok := r.clients[c]
	return ok
}

// Join adds c to room, creating the room if needed. Joining twice is a no-op.
func (r *Registry) Join(c *Client, room string) bool {
	memberships, ok := r.clients[c]
	if !ok {
		return false
	}

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		r.rooms[room] = members
	}
	members[c] = struct{}{}
	memberships[room] = struct{}{}
	return true
}

// Leave removes c from room. It returns false if c was not a member.
func (r *Registry) Leave(c *Client, room string) bool {
	memberships, ok := r.clients[c]
	if !ok {
		return false
	}
	if _, member := memberships[room]; !member {
		return false
	}

	delete(memberships, room)
	r.removeMember(room, c)
	return true
}

func (r *Registry) removeMember(room string, c *Client) {
	members, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}

// Members returns the clients in room except the given one (nil excludes nobody).
func (r *Registry) Members(room string, except *Client) []*Client {
	members := r.rooms[room]
	out := make([]*Client, 0, len(members))
	for c := range members {
		if c != except {
			out = append(out, c)
		}
	}
	return out
}

// Clients returns every registered client.
func (r *Registry) Clients() []*Client {
	out := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		out = append(out, c)
	}
	return out
}

// RoomsOf returns the rooms c belongs to in sorted order.
func (r *Registry) RoomsOf(c *Client) []string {
	memberships := r.clients[c]
	rooms := make([]string, 0, len(memberships))
	for room := range memberships {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

// HasRoom reports whether room currently has members.
func (r *Registry) HasRoom(room string) bool {
	_, ok := r.rooms[room]
	return ok
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	return len(r.clients)
}

// RoomCount returns the number of non-empty rooms.
func (r *Registry) RoomCount() int {
	return len(r.rooms)
}
