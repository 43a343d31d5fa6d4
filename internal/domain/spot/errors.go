package spot

import "errors"

// Typed failures returned by lifecycle operations. Callers match them with
// errors.Is; none of them indicates an internal fault.
var (
	// ErrInvalidLocation means the published coordinates are out of range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrSelfClaim means an owner tried to claim their own spot.
	ErrSelfClaim = errors.New("cannot claim own spot")

	// ErrNotClaimable means the spot cannot currently be claimed: it is
	// already claimed, expired, reported, or otherwise not available.
	ErrNotClaimable = errors.New("spot not claimable")

	// ErrNotFound means no spot exists with the given id.
	ErrNotFound = errors.New("spot not found")

	// ErrNotAuthorized means the caller is not the current claimant.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrNotCancelable means the spot can no longer be canceled by its owner.
	ErrNotCancelable = errors.New("spot not cancelable")

	// ErrDuplicateID means a spot with the same id already exists.
	ErrDuplicateID = errors.New("duplicate spot id")

	// ErrCapacityExceeded means the active spot cap is reached and no new
	// spot can be published until one resolves or expires.
	ErrCapacityExceeded = errors.New("active spot capacity exceeded")
)
