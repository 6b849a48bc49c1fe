package service

import "strings"

// Role enumerates the actor roles the workflow recognizes.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

// NormalizeRole maps a raw role claim onto a known Role. Unknown values come back
// unchanged (lowercased) so the guard can deny them by name.
func NormalizeRole(raw string) Role {
	return Role(strings.ToLower(strings.TrimSpace(raw)))
}

// Actor identifies the authenticated principal behind a request.
type Actor struct {
	ID   uint
	Role Role
}

// GuardAction enumerates the operations the guard can rule on.
type GuardAction string

const (
	ActionCreateSubmission  GuardAction = "submission.create"
	ActionViewOwnSubmission GuardAction = "submission.view_own"
	ActionViewAnySubmission GuardAction = "submission.view_all"
	ActionTransition        GuardAction = "submission.transition"
	ActionOverride          GuardAction = "submission.override"
	ActionViewOwnCredits    GuardAction = "credits.view_own"
	ActionViewAnyCredits    GuardAction = "credits.view_all"
	ActionReverseCredit     GuardAction = "credits.reverse"
	ActionViewAudit         GuardAction = "audit.view"
)

// Decision is the guard's verdict. Reason is set only on denials.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// AuthorizationGuard rules on (role, action, resource owner, actor) tuples.
// Default is deny: any pair not explicitly allowed below is refused.
type AuthorizationGuard interface {
	Check(role Role, action GuardAction, resourceOwnerID, actorID uint) Decision
}

type authorizationGuard struct{}

// NewAuthorizationGuard constructs the static role/action decision table.
func NewAuthorizationGuard() AuthorizationGuard {
	return authorizationGuard{}
}

func (authorizationGuard) Check(role Role, action GuardAction, resourceOwnerID, actorID uint) Decision {
	switch role {
	case RoleStudent:
		switch action {
		case ActionCreateSubmission:
			return allow()
		case ActionViewOwnSubmission, ActionViewOwnCredits:
			if resourceOwnerID == actorID {
				return allow()
			}
			return deny("students may only view their own records")
		}
		return deny("students may not perform " + string(action))

	case RoleFaculty:
		switch action {
		case ActionTransition:
			// Faculty never own submissions structurally, but the ownership check
			// still holds the line if role assignment ever slips.
			if resourceOwnerID == actorID {
				return deny("reviewers may not decide on their own submissions")
			}
			return allow()
		case ActionViewAnySubmission, ActionViewOwnSubmission, ActionViewAnyCredits, ActionViewOwnCredits:
			return allow()
		}
		return deny("faculty may not perform " + string(action))

	case RoleAdmin:
		switch action {
		case ActionViewAnySubmission, ActionViewOwnSubmission, ActionViewAnyCredits, ActionViewOwnCredits,
			ActionTransition, ActionOverride, ActionReverseCredit, ActionViewAudit:
			return allow()
		}
		return deny("administrators may not perform " + string(action))
	}

	return deny("unknown role " + string(role))
}
