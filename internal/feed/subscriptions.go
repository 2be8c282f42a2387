package feed

import "sync"

// subscriptions tracks the desired channels and the ones sent on the current session.
type subscriptions struct {
	mu      sync.Mutex
	desired []string
	active  map[string]struct{}
}

func newSubscriptions(channels []string) *subscriptions {
	desired := make([]string, 0, len(channels))
	seen := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		if ch == "" {
			continue
		}
		if _, ok := seen[ch]; ok {
			continue
		}
		seen[ch] = struct{}{}
		desired = append(desired, ch)
	}
	return &subscriptions{
		desired: desired,
		active:  make(map[string]struct{}, len(desired)),
	}
}

// Pending returns desired channels not yet sent on this session, in configured order.
func (s *subscriptions) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := make([]string, 0, len(s.desired))
	for _, ch := range s.desired {
		if _, ok := s.active[ch]; !ok {
			pending = append(pending, ch)
		}
	}
	return pending
}

// MarkActive marks a channel as sent.
func (s *subscriptions) MarkActive(channel string) {
	s.mu.Lock()
	s.active[channel] = struct{}{}
	s.mu.Unlock()
}

// ClearActive forgets all sends; called for every new session.
func (s *subscriptions) ClearActive() {
	s.mu.Lock()
	clear(s.active)
	s.mu.Unlock()
}

// Desired returns a copy of the configured channels.
func (s *subscriptions) Desired() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.desired...)
}
