// Package session holds unit-of-work state: loaded entities and the
// batch-fetch queue of entities known to be needed soon.
package session

import (
	"container/list"
	"fmt"
)

// EntityKey identifies one entity instance by entity name and normalized
// identifier value. It is comparable and used as a map key.
type EntityKey struct {
	Entity string
	ID     any
}

// String implements fmt.Stringer.
func (k EntityKey) String() string {
	return fmt.Sprintf("%s#%v", k.Entity, k.ID)
}

// pendingSet is an insertion-ordered set of identifiers.
type pendingSet struct {
	order *list.List
	index map[any]*list.Element
}

func newPendingSet() *pendingSet {
	return &pendingSet{
		order: list.New(),
		index: make(map[any]*list.Element),
	}
}

// BatchFetchQueue tracks, per entity, the identifiers that should be loaded
// together with the next load of that entity. It belongs to one session and
// is not safe for concurrent use.
type BatchFetchQueue struct {
	pending map[string]*pendingSet
}

// NewBatchFetchQueue creates an empty queue.
func NewBatchFetchQueue() *BatchFetchQueue {
	return &BatchFetchQueue{
		pending: make(map[string]*pendingSet),
	}
}

// Register marks key as pending. It reports whether the key was added; a key
// that is already pending is left in its original position.
func (q *BatchFetchQueue) Register(key EntityKey) bool {
	set, ok := q.pending[key.Entity]
	if !ok {
		set = newPendingSet()
		q.pending[key.Entity] = set
	}
	if _, exists := set.index[key.ID]; exists {
		return false
	}
	set.index[key.ID] = set.order.PushBack(key.ID)
	return true
}

// Contains reports whether key is pending.
func (q *BatchFetchQueue) Contains(key EntityKey) bool {
	set, ok := q.pending[key.Entity]
	if !ok {
		return false
	}
	_, exists := set.index[key.ID]
	return exists
}

// Remove drops key from the queue. Removing an absent key is a no-op.
func (q *BatchFetchQueue) Remove(key EntityKey) {
	set, ok := q.pending[key.Entity]
	if !ok {
		return
	}
	elem, exists := set.index[key.ID]
	if !exists {
		return
	}
	set.order.Remove(elem)
	delete(set.index, key.ID)
	if len(set.index) == 0 {
		delete(q.pending, key.Entity)
	}
}

// Collect fills up to maxCount slots by calling visit(index, id). Slot 0 is
// always anchor; the remaining slots take pending identifiers of entity in
// registration order, skipping the anchor. The queue is not modified.
func (q *BatchFetchQueue) Collect(maxCount int, visit func(index int, id any), anchor any, entity string) {
	if maxCount < 1 {
		return
	}
	visit(0, anchor)

	set, ok := q.pending[entity]
	if !ok {
		return
	}

	i := 1
	for elem := set.order.Front(); elem != nil && i < maxCount; elem = elem.Next() {
		if elem.Value == anchor {
			continue
		}
		visit(i, elem.Value)
		i++
	}
}

// Pending returns the pending identifiers of entity in registration order.
func (q *BatchFetchQueue) Pending(entity string) []any {
	set, ok := q.pending[entity]
	if !ok {
		return nil
	}
	ids := make([]any, 0, len(set.index))
	for elem := set.order.Front(); elem != nil; elem = elem.Next() {
		ids = append(ids, elem.Value)
	}
	return ids
}

// Len returns the number of pending identifiers of entity.
func (q *BatchFetchQueue) Len(entity string) int {
	set, ok := q.pending[entity]
	if !ok {
		return 0
	}
	return len(set.index)
}

// Clear drops every pending key.
func (q *BatchFetchQueue) Clear() {
	q.pending = make(map[string]*pendingSet)
}
