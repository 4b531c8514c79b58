package session

import "tweetwall.live/internal/board"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleOwner Role = "owner"
)

func (r Role) Elevated() bool { return r == RoleAdmin || r == RoleOwner }

// ResolveOwnerID reduces the redundant ownership fields on an item to a
// single canonical user id. The owner id field wins when present; the
// display name is only a resolution input for legacy items that never
// carried an id, it is never compared at call sites.
func ResolveOwnerID(it *board.Item, u User) string {
	if it.OwnerID != "" {
		return it.OwnerID
	}
	if it.OwnerName != "" && it.OwnerName == u.Username {
		return u.ID
	}
	return ""
}

// CanDrag gates drag start. Pinned items are never draggable, for anyone.
// Elevated roles drag any item; a base role drags only its own.
func CanDrag(it *board.Item, u User, role Role) bool {
	if it == nil || it.Pinned {
		return false
	}
	if role.Elevated() {
		return true
	}
	return ResolveOwnerID(it, u) == u.ID && u.ID != ""
}
