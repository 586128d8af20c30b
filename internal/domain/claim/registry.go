package claim

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotClaimed is returned when unclaiming a target nobody holds
	ErrNotClaimed = errors.New("target not claimed")
	// ErrAlreadyClaimed is returned when overwrite is disabled and another
	// user holds the target
	ErrAlreadyClaimed = errors.New("target already claimed")
)

// Claim is an advisory reservation of an opponent member by a chat user
type Claim struct {
	MemberID  string    `json:"member_id"`
	UserID    string    `json:"user_id"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// Registry maps opponent member ids to claimers in insertion order. It is
// not safe for concurrent use.
type Registry struct {
	allowOverwrite bool
	order          []string
	claims         map[string]Claim
	now            func() time.Time
}

// NewRegistry creates an empty registry. With allowOverwrite a second claim
// on a held target replaces the claimer.
func NewRegistry(allowOverwrite bool) *Registry {
	return &Registry{
		allowOverwrite: allowOverwrite,
		claims:         make(map[string]Claim),
		now:            time.Now,
	}
}

// Claim reserves a target. Re-claiming by the same user is a no-op; a
// different user either overwrites or gets ErrAlreadyClaimed. The returned
// claim is the one now held and previous is the overwritten claimer, if any.
func (r *Registry) Claim(memberID, userID string) (held Claim, previous string, err error) {
	if existing, ok := r.claims[memberID]; ok {
		if existing.UserID == userID {
			return existing, "", nil
		}
		if !r.allowOverwrite {
			return existing, "", fmt.Errorf("%w by %s", ErrAlreadyClaimed, existing.UserID)
		}
		previous = existing.UserID
		existing.UserID = userID
		existing.ClaimedAt = r.now()
		r.claims[memberID] = existing
		return existing, previous, nil
	}

	held = Claim{MemberID: memberID, UserID: userID, ClaimedAt: r.now()}
	r.claims[memberID] = held
	r.order = append(r.order, memberID)
	return held, "", nil
}

// Unclaim releases a target
func (r *Registry) Unclaim(memberID string) (Claim, error) {
	existing, ok := r.claims[memberID]
	if !ok {
		return Claim{}, ErrNotClaimed
	}

	delete(r.claims, memberID)
	for i, id := range r.order {
		if id == memberID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return existing, nil
}

// Holder returns the claim on a target, if any
func (r *Registry) Holder(memberID string) (Claim, bool) {
	c, ok := r.claims[memberID]
	return c, ok
}

// IsClaimed reports whether a target is held
func (r *Registry) IsClaimed(memberID string) bool {
	_, ok := r.claims[memberID]
	return ok
}

// List returns claims in insertion order
func (r *Registry) List() []Claim {
	out := make([]Claim, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.claims[id])
	}
	return out
}

// Len returns the number of held claims
func (r *Registry) Len() int {
	return len(r.order)
}

// ClearAll drops every claim. Called once per ended war.
func (r *Registry) ClearAll() {
	r.order = nil
	r.claims = make(map[string]Claim)
}
