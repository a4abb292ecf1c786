package cache

// node is an entry of the recency list. The head is the most recently
// used entry.
type node[V any] struct {
	key        Key
	value      V
	prev, next *node[V]
}

// recency is a doubly-linked list ordered by last use. It is not
// synchronized; Cache holds its lock around every call.
type recency[V any] struct {
	head, tail *node[V]
	len        int
}

func (l *recency[V]) pushFront(n *node[V]) {
	n.prev, n.next = nil, l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
	l.len++
}

func (l *recency[V]) touch(n *node[V]) {
	if n == l.head {
		return
	}
	l.unlink(n)
	l.pushFront(n)
}

// popBack removes and returns the least recently used entry.
func (l *recency[V]) popBack() *node[V] {
	n := l.tail
	if n != nil {
		l.unlink(n)
	}
	return n
}

func (l *recency[V]) unlink(n *node[V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
	l.len--
}
