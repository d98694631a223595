package board

import (
	"cmp"
	"slices"
)

// Item is anything that can be ranked on a board.
// Identity is by Key; Label and Category are presentation only.
type Item interface {
	Key() int64
	Label() string
	Category() string
}

// Board owns the candidate pool and the ranked list.
// The two containers never share a key and the ranked list never holds a key twice.
// A Board is not safe for concurrent use; Session serializes access to it.
type Board[T Item] struct {
	pool   []T
	ranked []T
	filter string
}

// New creates a board from an initial pool and ranked list
func New[T Item](pool, ranked []T) *Board[T] {
	b := &Board[T]{}
	b.Reset(pool, ranked)
	return b
}

// Reset replaces both containers.
// Duplicate keys are dropped, and an item present in both inputs stays ranked.
func (b *Board[T]) Reset(pool, ranked []T) {
	seen := make(map[int64]bool, len(pool)+len(ranked))

	b.ranked = make([]T, 0, len(ranked))
	for _, item := range ranked {
		if seen[item.Key()] {
			continue
		}
		seen[item.Key()] = true
		b.ranked = append(b.ranked, item)
	}

	b.pool = make([]T, 0, len(pool))
	for _, item := range pool {
		if seen[item.Key()] {
			continue
		}
		seen[item.Key()] = true
		b.pool = append(b.pool, item)
	}
	b.sortPool()
}

// MoveToList removes item from the pool (if present) and appends it to the ranked list.
// It is a no-op when the item is already ranked, so duplicate or late drops are harmless.
func (b *Board[T]) MoveToList(item T) bool {
	if indexOf(b.ranked, item.Key()) >= 0 {
		return false
	}
	if i := indexOf(b.pool, item.Key()); i >= 0 {
		b.pool = slices.Delete(b.pool, i, i+1)
	}
	b.ranked = append(b.ranked, item)
	return true
}

// MoveToPool removes item from the ranked list and returns it to the pool.
func (b *Board[T]) MoveToPool(item T) bool {
	i := indexOf(b.ranked, item.Key())
	if i < 0 {
		return false
	}
	moved := b.ranked[i]
	b.ranked = slices.Delete(b.ranked, i, i+1)
	if indexOf(b.pool, moved.Key()) < 0 {
		b.pool = append(b.pool, moved)
		b.sortPool()
	}
	return true
}

// Reorder moves dragged into the slot target occupied before the move.
// Dragging upwards lands dragged just above target, dragging downwards just below it:
// [a b c] with (a, b) gives [b a c] and (a, c) gives [b c a].
// Stale drags (dragged no longer ranked) and unknown targets leave the list untouched.
func (b *Board[T]) Reorder(dragged, target T) bool {
	if dragged.Key() == target.Key() {
		return false
	}
	from := indexOf(b.ranked, dragged.Key())
	to := indexOf(b.ranked, target.Key())
	if from < 0 || to < 0 {
		return false
	}
	moved := b.ranked[from]
	next := slices.Delete(b.ranked, from, from+1)
	b.ranked = slices.Insert(next, to, moved)
	return true
}

// Rearrange ranks the items whose keys appear in keys, in that order, and returns every
// other known item to the pool. Unknown keys are ignored.
func (b *Board[T]) Rearrange(keys []int64) {
	universe := make([]T, 0, len(b.pool)+len(b.ranked))
	universe = append(universe, b.ranked...)
	universe = append(universe, b.pool...)

	byKey := make(map[int64]T, len(universe))
	for _, item := range universe {
		byKey[item.Key()] = item
	}

	ranked := make([]T, 0, len(keys))
	for _, k := range keys {
		if item, ok := byKey[k]; ok {
			ranked = append(ranked, item)
		}
	}
	b.Reset(universe, ranked)
}

// Find looks an item up by key in either container
func (b *Board[T]) Find(key int64) (T, bool) {
	if i := indexOf(b.ranked, key); i >= 0 {
		return b.ranked[i], true
	}
	if i := indexOf(b.pool, key); i >= 0 {
		return b.pool[i], true
	}
	var zero T
	return zero, false
}

// InList reports whether key is currently ranked
func (b *Board[T]) InList(key int64) bool {
	return indexOf(b.ranked, key) >= 0
}

// SetFilter narrows the visible pool to one category; "" shows everything
func (b *Board[T]) SetFilter(category string) {
	b.filter = category
}

// Filter returns the active category filter
func (b *Board[T]) Filter() string {
	return b.filter
}

// Pool returns a copy of the full pool in display order
func (b *Board[T]) Pool() []T {
	return slices.Clone(b.pool)
}

// Visible returns the pool items that match the active filter
func (b *Board[T]) Visible() []T {
	if b.filter == "" {
		return b.Pool()
	}
	visible := make([]T, 0, len(b.pool))
	for _, item := range b.pool {
		if item.Category() == b.filter {
			visible = append(visible, item)
		}
	}
	return visible
}

// Ranked returns a copy of the ranked list, best first
func (b *Board[T]) Ranked() []T {
	return slices.Clone(b.ranked)
}

// Keys returns the ranked keys, best first
func (b *Board[T]) Keys() []int64 {
	keys := make([]int64, len(b.ranked))
	for i, item := range b.ranked {
		keys[i] = item.Key()
	}
	return keys
}

// Categories returns the distinct non-empty categories across both containers, sorted
func (b *Board[T]) Categories() []string {
	cats := []string{}
	for _, list := range [][]T{b.pool, b.ranked} {
		for _, item := range list {
			if c := item.Category(); c != "" && !slices.Contains(cats, c) {
				cats = append(cats, c)
			}
		}
	}
	slices.Sort(cats)
	return cats
}

func (b *Board[T]) sortPool() {
	slices.SortStableFunc(b.pool, func(x, y T) int {
		if c := cmp.Compare(x.Label(), y.Label()); c != 0 {
			return c
		}
		return cmp.Compare(x.Key(), y.Key())
	})
}

func indexOf[T Item](items []T, key int64) int {
	return slices.IndexFunc(items, func(item T) bool { return item.Key() == key })
}
