package domain

// Kind classifies a domain failure so the HTTP boundary can map it to a
// status code without knowing every individual rule.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindForbidden  Kind = "forbidden"
	KindValidation Kind = "validation"
	KindTemporal   Kind = "temporal"
	KindContention Kind = "contention"
)

// Error is a typed domain rule violation carrying a stable external code.
type Error struct {
	Code    string
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Retryable reports whether the caller may retry the operation. Only
// contention failures (lock-wait timeouts, serialization conflicts) qualify.
func (e *Error) Retryable() bool {
	return e.Kind == KindContention
}

func newError(code string, kind Kind, message string) *Error {
	return &Error{Code: code, Kind: kind, Message: message}
}

// Join / leave / cancel failures.
var (
	ErrActivityNotFound     = newError("ACTIVITY_NOT_FOUND", KindNotFound, "activity not found")
	ErrUserNotFound         = newError("USER_NOT_FOUND", KindNotFound, "user not found")
	ErrAlreadyJoined        = newError("ALREADY_JOINED", KindConflict, "already joined this activity")
	ErrBlockedUser          = newError("BLOCKED_USER", KindForbidden, "cannot join this activity")
	ErrFriendsOnly          = newError("FRIENDS_ONLY", KindForbidden, "activity is friends only")
	ErrInviteOnly           = newError("INVITE_ONLY", KindForbidden, "activity is invite only")
	ErrPremiumOnlyPeriod    = newError("PREMIUM_ONLY_PERIOD", KindForbidden, "activity is currently only open to premium members")
	ErrUserBanned           = newError("USER_BANNED", KindForbidden, "account is banned")
	ErrActivityInPast       = newError("ACTIVITY_IN_PAST", KindTemporal, "activity has already occurred")
	ErrActivityNotPublished = newError("ACTIVITY_NOT_PUBLISHED", KindValidation, "activity is not published")
	ErrUserIsOrganizer      = newError("USER_IS_ORGANIZER", KindConflict, "organizer cannot join own activity")
	ErrNotParticipant       = newError("NOT_PARTICIPANT", KindValidation, "not a participant of this activity")
	ErrIsOrganizer          = newError("IS_ORGANIZER", KindForbidden, "organizer cannot leave activity")
	ErrAlreadyCancelled     = newError("ALREADY_CANCELLED", KindConflict, "participation already cancelled")
)

// Role management failures.
var (
	ErrNotOrganizer       = newError("NOT_ORGANIZER", KindForbidden, "only the organizer can manage participant roles")
	ErrTargetNotMember    = newError("TARGET_NOT_MEMBER", KindValidation, "user is not a member participant")
	ErrAlreadyCoOrganizer = newError("ALREADY_CO_ORGANIZER", KindConflict, "user is already a co-organizer")
	ErrNotCoOrganizer     = newError("NOT_CO_ORGANIZER", KindValidation, "user is not a co-organizer")
)

// Invitation failures.
var (
	ErrNotInviteOnly      = newError("NOT_INVITE_ONLY", KindValidation, "activity is not invite-only")
	ErrNotAuthorized      = newError("NOT_AUTHORIZED", KindForbidden, "only organizer or co-organizer may perform this action")
	ErrTooManyInvitations = newError("TOO_MANY_INVITATIONS", KindValidation, "maximum 50 invitations per request")
	ErrInvitationNotFound = newError("INVITATION_NOT_FOUND", KindNotFound, "invitation not found")
	ErrNotYourInvitation  = newError("NOT_YOUR_INVITATION", KindForbidden, "this invitation is not for you")
	ErrAlreadyResponded   = newError("ALREADY_RESPONDED", KindConflict, "invitation already responded to")
	ErrInvitationExpired  = newError("INVITATION_EXPIRED", KindTemporal, "invitation has expired")
)

// Attendance failures.
var (
	ErrActivityNotCompleted = newError("ACTIVITY_NOT_COMPLETED", KindTemporal, "activity has not yet completed")
	ErrTooManyUpdates       = newError("TOO_MANY_UPDATES", KindValidation, "maximum 100 attendance updates per request")
	ErrConfirmerNotAttended = newError("CONFIRMER_NOT_ATTENDED", KindValidation, "you must have attended status to confirm others")
	ErrConfirmedNotAttended = newError("CONFIRMED_NOT_ATTENDED", KindValidation, "user does not have attended status")
	ErrSelfConfirmation     = newError("SELF_CONFIRMATION", KindValidation, "cannot confirm your own attendance")
	ErrAlreadyConfirmed     = newError("ALREADY_CONFIRMED", KindConflict, "you already confirmed this user for this activity")
)

// ErrContention is returned when a concurrently mutated activity could not be
// locked within the persistence layer's lock-wait timeout. Callers may retry
// with backoff; every other domain error is terminal for the request.
var ErrContention = newError("CONTENTION", KindContention, "activity is being modified concurrently, retry")
