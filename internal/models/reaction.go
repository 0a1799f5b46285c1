package models

import "slices"

// ReactionKind is one entry of the closed reaction vocabulary.
type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
	ReactionHeart   ReactionKind = "heart"
	ReactionAngry   ReactionKind = "angry"
	ReactionLaugh   ReactionKind = "laugh"
	ReactionCry     ReactionKind = "cry"
)

// ReactionKinds lists the accepted kinds in display order.
var ReactionKinds = []ReactionKind{
	ReactionLike,
	ReactionDislike,
	ReactionHeart,
	ReactionAngry,
	ReactionLaugh,
	ReactionCry,
}

// ParseReactionKind validates s against the vocabulary.
func ParseReactionKind(s string) (ReactionKind, error) {
	kind := ReactionKind(s)
	if !slices.Contains(ReactionKinds, kind) {
		return "", NewInvalidReactionError(s)
	}
	return kind, nil
}

// ReactionMap maps a reaction kind to the ordered set of user ids holding it.
type ReactionMap map[ReactionKind][]string

// KindOf returns the kind currently held by userID.
func (m ReactionMap) KindOf(userID string) (ReactionKind, bool) {
	for kind, users := range m {
		if slices.Contains(users, userID) {
			return kind, true
		}
	}
	return "", false
}

// Counts returns the number of users per kind.
func (m ReactionMap) Counts() map[ReactionKind]int {
	counts := make(map[ReactionKind]int, len(m))
	for kind, users := range m {
		counts[kind] = len(users)
	}
	return counts
}

// Clone returns a deep copy.
func (m ReactionMap) Clone() ReactionMap {
	out := make(ReactionMap, len(m))
	for kind, users := range m {
		out[kind] = slices.Clone(users)
	}
	return out
}

// ApplyReaction toggles kind for userID and returns the resulting map.
//
// The user is removed from every set that holds them. If the removed kind was
// the requested one the user ends up without a reaction, otherwise they are
// appended to the requested set. Empty sets are dropped. current is never
// modified.
func ApplyReaction(current ReactionMap, userID string, kind ReactionKind) (ReactionMap, error) {
	if _, err := ParseReactionKind(string(kind)); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, NewValidationError("user id is required")
	}

	next := make(ReactionMap, len(current)+1)
	toggledOff := false
	for k, users := range current {
		kept := make([]string, 0, len(users))
		for _, id := range users {
			if id == userID {
				if k == kind {
					toggledOff = true
				}
				continue
			}
			kept = append(kept, id)
		}
		if len(kept) > 0 {
			next[k] = kept
		}
	}

	if !toggledOff {
		next[kind] = append(next[kind], userID)
	}
	return next, nil
}
