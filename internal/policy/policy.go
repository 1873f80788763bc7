// Package policy implements the row-level access rules for profiles,
// tourist sessions, and emergency alerts. Every read is scoped and every
// write is checked here; handlers and services never apply role logic
// themselves.
package policy

import (
	"errors"

	"gorm.io/gorm"

	"tourguard/api/internal/model"
)

// Action is one of the four row-level permissions
type Action string

const (
	ActionSelect Action = "select"
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ErrDenied is returned when a policy predicate evaluates false.
// Handlers map it to HTTP 403.
var ErrDenied = errors.New("permission denied")

// Ownable is implemented by every row type that belongs to a single user.
type Ownable interface {
	GetUserID() uint
}

// Caller is the authenticated principal a predicate evaluates against.
// Role is resolved from the caller's profile; a caller with no profile has
// the zero role, which fails every elevated check.
type Caller struct {
	UserID uint
	Role   model.AppRole
}

// Elevated reports whether the caller holds the admin or police role.
func (c Caller) Elevated() bool {
	return c.Role.Elevated()
}

// owns reports whether the caller owns the row. A nil row never matches.
func (c Caller) owns(row Ownable) bool {
	return row != nil && row.GetUserID() == c.UserID
}

// Profiles: a caller may select/insert/update only their own row;
// admin/police may additionally select (read-only) all rows. Profiles are
// never deleted by the application.
type Profiles struct{}

func (Profiles) Can(caller Caller, action Action, row Ownable) bool {
	switch action {
	case ActionSelect:
		return caller.Elevated() || caller.owns(row)
	case ActionInsert, ActionUpdate:
		return caller.owns(row)
	default:
		return false
	}
}

// Sessions: owners hold all four permissions on their rows; admin/police
// may select (read-only) all rows.
type Sessions struct{}

func (Sessions) Can(caller Caller, action Action, row Ownable) bool {
	switch action {
	case ActionSelect:
		return caller.Elevated() || caller.owns(row)
	case ActionInsert, ActionUpdate, ActionDelete:
		return caller.owns(row)
	default:
		return false
	}
}

// Alerts: a tourist may insert only alerts carrying their own user id and
// select only their own; admin/police may select all and update (resolve)
// all. Owners can never update their own alerts (no self-resolution) and
// nobody deletes alert rows.
type Alerts struct{}

func (Alerts) Can(caller Caller, action Action, row Ownable) bool {
	switch action {
	case ActionSelect:
		return caller.Elevated() || caller.owns(row)
	case ActionInsert:
		return caller.owns(row)
	case ActionUpdate:
		// no self-resolution, elevated or not
		return caller.Elevated() && !caller.owns(row)
	default:
		return false
	}
}

// Scope restricts a list query to the caller's own rows unless the caller
// holds an elevated role. Use on every multi-row select.
func Scope(caller Caller) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if caller.Elevated() {
			return db
		}
		return db.Where("user_id = ?", caller.UserID)
	}
}

// Authorize converts a predicate result into an error suitable for
// propagation out of a service.
func Authorize(allowed bool) error {
	if !allowed {
		return ErrDenied
	}
	return nil
}
