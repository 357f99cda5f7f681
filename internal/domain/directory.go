package domain

import "sort"

// Directory maps usernames to users. It is the root of all persisted state.
type Directory struct {
	users map[string]*User
}

// NewDirectory creates an empty directory
func NewDirectory() *Directory {
	return &Directory{users: make(map[string]*User)}
}

// Put stores user under its username, replacing any previous user of that name
func (d *Directory) Put(user *User) {
	d.users[user.Username] = user
}

// Get returns the user registered as username
func (d *Directory) Get(username string) (*User, bool) {
	user, ok := d.users[username]
	return user, ok
}

// Len returns the number of users
func (d *Directory) Len() int {
	return len(d.users)
}

// Usernames returns every username in lexical order
func (d *Directory) Usernames() []string {
	names := make([]string, 0, len(d.users))
	for name := range d.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Users returns every user, ordered by username
func (d *Directory) Users() []*User {
	names := d.Usernames()
	users := make([]*User, len(names))
	for i, name := range names {
		users[i] = d.users[name]
	}
	return users
}
