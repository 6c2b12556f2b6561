package chat

// Matchmaker pairs users through an explicit FIFO wait queue: a requester
// with no available partner enqueues itself and a later requester dequeues
// the oldest waiting user. A handle appears in the queue at most once and
// only while its record is unconnected.
type Matchmaker struct {
	queue []string
}

// NewMatchmaker returns a matchmaker with an empty wait queue.
func NewMatchmaker() *Matchmaker {
	return &Matchmaker{}
}

// FindOrQueue returns the oldest waiting user for whom available reports
// true, skipping the requester itself and stale entries (users whose record
// vanished or got connected without queue cleanup). When no live entry
// remains the requester is enqueued and ok is false.
//
// Stale entries are discarded with a bounded loop over the current queue
// length rather than recursion, so a pile-up of dead entries cannot grow the
// stack.
func (m *Matchmaker) FindOrQueue(id string, available func(string) bool) (partner string, ok bool) {
	for len(m.queue) > 0 {
		head := m.queue[0]
		m.queue = m.queue[1:]
		if head == id {
			continue
		}
		if available != nil && !available(head) {
			continue
		}
		return head, true
	}
	m.enqueue(id)
	return "", false
}

// Waiting reports whether id is currently in the wait queue.
func (m *Matchmaker) Waiting(id string) bool {
	for _, q := range m.queue {
		if q == id {
			return true
		}
	}
	return false
}

// Remove drops id from the wait queue if present.
func (m *Matchmaker) Remove(id string) {
	for i, q := range m.queue {
		if q == id {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}

// Len returns the number of queued users, stale entries included.
func (m *Matchmaker) Len() int {
	return len(m.queue)
}

func (m *Matchmaker) enqueue(id string) {
	if m.Waiting(id) {
		return
	}
	m.queue = append(m.queue, id)
}
