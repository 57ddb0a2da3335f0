package store

import "time"

type entity interface {
	RowID() string
}

// cloner is implemented by rows holding reference fields.
type cloner[T any] interface {
	Clone() T
}

type orphan[T entity] struct {
	row T
	at  time.Time
}

// collection is one table's rows in arrival order. Updates for ids that are
// not present yet are parked in orphans until the row shows up or the entry
// expires.
type collection[T entity] struct {
	rows    []T
	orphans map[string]orphan[T]
}

func (c *collection[T]) index(id string) int {
	for i, row := range c.rows {
		if row.RowID() == id {
			return i
		}
	}
	return -1
}

func (c *collection[T]) expire(now time.Time, ttl time.Duration) {
	for id, o := range c.orphans {
		if now.Sub(o.at) > ttl {
			delete(c.orphans, id)
		}
	}
}

// adopt returns the buffered update for row's id if one is still live.
func (c *collection[T]) adopt(row T, now time.Time, ttl time.Duration) T {
	c.expire(now, ttl)
	if o, ok := c.orphans[row.RowID()]; ok {
		delete(c.orphans, row.RowID())
		return o.row
	}
	return row
}

// replace swaps in a full fetch result.
func (c *collection[T]) replace(rows []T, now time.Time, ttl time.Duration) {
	next := make([]T, len(rows))
	for i, row := range rows {
		next[i] = c.adopt(row, now, ttl)
	}
	c.rows = next
}

// insert appends row, or replaces the element with the same id in place.
func (c *collection[T]) insert(row T, now time.Time, ttl time.Duration) {
	row = c.adopt(row, now, ttl)
	if i := c.index(row.RowID()); i >= 0 {
		c.rows[i] = row
		return
	}
	c.rows = append(c.rows, row)
}

// update replaces the element with row's id. It reports false when the id is
// absent; the row is then buffered if ttl allows.
func (c *collection[T]) update(row T, now time.Time, ttl time.Duration) bool {
	if i := c.index(row.RowID()); i >= 0 {
		c.rows[i] = row
		return true
	}
	if ttl <= 0 {
		return false
	}
	c.expire(now, ttl)
	if c.orphans == nil {
		c.orphans = make(map[string]orphan[T])
	}
	c.orphans[row.RowID()] = orphan[T]{row: row, at: now}
	return false
}

// remove drops the element with id and any buffered update for it.
func (c *collection[T]) remove(id string) bool {
	delete(c.orphans, id)
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.rows = append(c.rows[:i], c.rows[i+1:]...)
	return true
}

func (c *collection[T]) clear() {
	c.rows = nil
	c.orphans = nil
}

func (c *collection[T]) snapshot() []T {
	out := make([]T, len(c.rows))
	for i, row := range c.rows {
		if cl, ok := any(row).(cloner[T]); ok {
			row = cl.Clone()
		}
		out[i] = row
	}
	return out
}

func (c *collection[T]) pending() int {
	return len(c.orphans)
}
