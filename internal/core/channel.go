package core

// Channel groups sessions subscribed to the same #name. All methods are
// called by the Hub with its lock held.
type Channel struct {
	Name    string
	members map[*Session]struct{}
}

func newChannel(name string) *Channel {
	return &Channel{
		Name:    name,
		members: make(map[*Session]struct{}),
	}
}

// add inserts a session into the channel. Returns true if newly added.
func (c *Channel) add(s *Session) bool {
	if _, exists := c.members[s]; exists {
		return false
	}
	c.members[s] = struct{}{}
	return true
}

// remove deletes a session from the channel. Returns true if removed.
func (c *Channel) remove(s *Session) bool {
	if _, exists := c.members[s]; !exists {
		return false
	}
	delete(c.members, s)
	return true
}

func (c *Channel) contains(s *Session) bool {
	_, ok := c.members[s]
	return ok
}

func (c *Channel) size() int {
	return len(c.members)
}

// snapshot returns the current members, skipping exclude when non-nil.
// Delivery happens on the snapshot after the Hub lock is released.
func (c *Channel) snapshot(exclude *Session) []*Session {
	out := make([]*Session, 0, len(c.members))
	for member := range c.members {
		if member == exclude {
			continue
		}
		out = append(out, member)
	}
	return out
}
