package user

import "github.com/lllypuk/userdir/internal/domain/errs"

// Collection is an ordered, read-only set of users produced by one load.
type Collection struct {
	users   []User
	index   map[int]int
	version uint64
}

// NewCollection wraps users in upstream order. The caller must not modify
// the slice afterwards.
func NewCollection(users []User, version uint64) Collection {
	index := make(map[int]int, len(users))
	for i, u := range users {
		index[u.ID()] = i
	}
	return Collection{
		users:   users,
		index:   index,
		version: version,
	}
}

// Len returns the number of users.
func (c Collection) Len() int { return len(c.users) }

// All returns the users in upstream order.
func (c Collection) All() []User { return c.users }

// Version identifies the load that produced the collection.
func (c Collection) Version() uint64 { return c.version }

// ByID looks up a user by upstream ID.
func (c Collection) ByID(id int) (User, error) {
	i, ok := c.index[id]
	if !ok {
		return User{}, errs.ErrNotFound
	}
	return c.users[i], nil
}
