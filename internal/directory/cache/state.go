package cache

import (
	"slices"

	"userdir/internal/directory/models"
)

// State is the session's view of the remote record set.
//
// Invariants:
//   - Users only changes on a successful remote response
//   - Busy is true while at least one operation is in flight
//   - Err holds the message of the last failed operation and is cleared when the next one starts
type State struct {
	Users   []models.User
	Busy    bool
	Err     string
	Editing *models.User

	inFlight int
}

// clone returns a copy that shares no memory with s.
func (s State) clone() State {
	out := s
	out.Users = slices.Clone(s.Users)
	if s.Editing != nil {
		e := *s.Editing
		out.Editing = &e
	}
	return out
}

// Action is a message applied to State by reduce.
type Action interface {
	Name() string
}

type (
	opStarted      struct{ op string }
	opFailed       struct{ op, message string }
	usersLoaded    struct{ users []models.User }
	userAdded      struct{ user models.User }
	userUpdated    struct{ user models.User }
	userRemoved    struct{ id models.UserID }
	editingSet     struct{ user models.User }
	editingCleared struct{}
	errorCleared   struct{}
)

func (a opStarted) Name() string    { return a.op + "/pending" }
func (a opFailed) Name() string     { return a.op + "/rejected" }
func (usersLoaded) Name() string    { return "load/fulfilled" }
func (userAdded) Name() string      { return "insert/fulfilled" }
func (userUpdated) Name() string    { return "update/fulfilled" }
func (userRemoved) Name() string    { return "remove/fulfilled" }
func (editingSet) Name() string     { return "editing/set" }
func (editingCleared) Name() string { return "editing/clear" }
func (errorCleared) Name() string   { return "error/clear" }

// reduce returns the state that follows s after a. s is not modified.
func reduce(s State, a Action) State {
	next := s.clone()
	switch a := a.(type) {
	case opStarted:
		next.inFlight++
		next.Err = ""
	case opFailed:
		next.finish()
		next.Err = a.message
	case usersLoaded:
		next.finish()
		next.Users = slices.Clone(a.users)
	case userAdded:
		next.finish()
		next.Users = append(next.Users, a.user)
	case userUpdated:
		next.finish()
		if i := slices.IndexFunc(next.Users, func(u models.User) bool { return u.ID == a.user.ID }); i >= 0 {
			next.Users[i] = a.user
		}
		next.Editing = nil
	case userRemoved:
		next.finish()
		next.Users = slices.DeleteFunc(next.Users, func(u models.User) bool { return u.ID == a.id })
	case editingSet:
		u := a.user
		next.Editing = &u
	case editingCleared:
		next.Editing = nil
	case errorCleared:
		next.Err = ""
	}
	next.Busy = next.inFlight > 0
	return next
}

func (s *State) finish() {
	if s.inFlight > 0 {
		s.inFlight--
	}
}
