package chathub

// registry is the process-local connection index: who is reachable right now
// and which rooms they have joined. It is convenience state reconstructed from
// the durable participant rows; authorization never reads it. Only the hub's
// run loop touches it, so no locking is needed.
type registry struct {
	// clients maps userID to its live connection.
	clients map[string]Client
	// rooms maps roomID to the set of joined userIDs.
	rooms map[string]map[string]struct{}
	// userRooms maps userID to the set of joined roomIDs.
	userRooms map[string]map[string]struct{}
}

func newRegistry() *registry {
	return &registry{
		clients:   make(map[string]Client),
		rooms:     make(map[string]map[string]struct{}),
		userRooms: make(map[string]map[string]struct{}),
	}
}

func (r *registry) setClient(c Client) { r.clients[c.GetUserID()] = c }

func (r *registry) client(userID string) (Client, bool) {
	c, ok := r.clients[userID]
	return c, ok
}

// dropConnection removes only the live-connection entry. Room membership is
// kept so a reconnect silently rejoins prior rooms.
func (r *registry) dropConnection(c Client) bool {
	userID := c.GetUserID()
	if current, ok := r.clients[userID]; ok && current == c {
		delete(r.clients, userID)
		return true
	}
	return false
}

func (r *registry) join(roomID, userID string) {
	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[string]struct{})
	}
	r.rooms[roomID][userID] = struct{}{}
	if r.userRooms[userID] == nil {
		r.userRooms[userID] = make(map[string]struct{})
	}
	r.userRooms[userID][roomID] = struct{}{}
}

// leave prunes membership on a deliberate room leave.
func (r *registry) leave(roomID, userID string) {
	if members, ok := r.rooms[roomID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
	if joined, ok := r.userRooms[userID]; ok {
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(r.userRooms, userID)
		}
	}
}

func (r *registry) membersOf(roomID string) map[string]struct{} { return r.rooms[roomID] }
