// Package label implements the fixed-capacity, separate-chaining label
// table used to resolve branch and call targets by name.
package label

// Entry pairs a declared label name with the command it was declared at,
// plus the next entry in its bucket's collision chain. The referenced
// command is owned by the parser's command sequence; Entry never owns it.
type Entry[T any] struct {
	Name    string
	Command T
	next    *Entry[T]
}

// Next returns the next entry in this bucket's collision chain, or nil.
func (e *Entry[T]) Next() *Entry[T] {
	if e == nil {
		return nil
	}
	return e.next
}

// Map is a fixed-capacity hash table with separate chaining. Capacity is
// fixed at construction, matching spec.md's "capacity is chosen at
// construction" and the C reference's calloc'd bucket array. T is the
// command-reference type the map stores; pkg/asml instantiates it as
// *asml.Command.
type Map[T any] struct {
	buckets []*Entry[T]
}

// NewMap pre-allocates capacity head buckets, all initially empty.
func NewMap[T any](capacity int) *Map[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Map[T]{buckets: make([]*Entry[T], capacity)}
}

// hash sums the byte values of name modulo the table's capacity. This
// matches the C reference's hash_function exactly: a monotone but
// otherwise unsophisticated distribution, acceptable because label counts
// are small.
func (m *Map[T]) hash(name string) int {
	var sum uint64
	for i := 0; i < len(name); i++ {
		sum += uint64(name[i])
	}
	return int(sum % uint64(len(m.buckets)))
}

// Put inserts name -> command, appending to the tail of the bucket's
// collision chain on a hash collision. Because Lookup always walks the
// chain from the head looking for the first exact match, the first entry
// inserted under a given name is the one every later lookup returns -
// duplicate labels resolve "first declared wins", exactly as in the C
// reference (see SPEC_FULL.md §9).
func (m *Map[T]) Put(name string, command T) {
	idx := m.hash(name)
	entry := &Entry[T]{Name: name, Command: command}

	head := m.buckets[idx]
	if head == nil {
		m.buckets[idx] = entry
		return
	}
	tail := head
	for tail.next != nil {
		tail = tail.next
	}
	tail.next = entry
}

// Get returns the head of name's bucket. Callers must walk the chain with
// Next, comparing Name, to find the exact match - an empty bucket returns
// nil rather than a sentinel with a blank Name, so callers must nil-check
// before dereferencing (the C reference's free_entries omits this check
// and crashes on an empty bucket; this Map does not reproduce that bug).
func (m *Map[T]) Get(name string) *Entry[T] {
	return m.buckets[m.hash(name)]
}

// Lookup walks name's bucket chain and returns the exact match, or nil if
// none exists.
func (m *Map[T]) Lookup(name string) *Entry[T] {
	for e := m.Get(name); e != nil; e = e.Next() {
		if e.Name == name {
			return e
		}
	}
	return nil
}
