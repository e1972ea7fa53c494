package application

import "github.com/example/reservation-engine/internal/scheduler"

func isAdministrative(actor scheduler.User) bool {
	return actor.Role == scheduler.RoleAdmin || actor.Role == scheduler.RoleManager
}

// canCreate admits every known role.
func canCreate(actor scheduler.User) bool {
	return actor.Role.Valid()
}

// canActOn reports whether actor may modify or cancel b.
func canActOn(actor scheduler.User, b scheduler.Booking) bool {
	if isAdministrative(actor) {
		return true
	}
	return actor.Role == scheduler.RoleUser && actor.ID == b.OwnerID
}

func canEvict(actor scheduler.User) bool {
	return isAdministrative(actor)
}

func canImport(actor scheduler.User) bool {
	return isAdministrative(actor)
}
