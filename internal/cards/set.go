package cards

// Set tracks which cards are already in use.
type Set map[Card]struct{}

// NewSet returns a set holding the given cards.
func NewSet(cs ...Card) Set {
	s := make(Set, len(cs))
	s.Add(cs...)
	return s
}

// Add inserts cards into the set.
func (s Set) Add(cs ...Card) {
	for _, c := range cs {
		s[c] = struct{}{}
	}
}

// Contains reports whether c is in the set.
func (s Set) Contains(c Card) bool {
	_, ok := s[c]
	return ok
}

// Len returns the number of cards in the set.
func (s Set) Len() int { return len(s) }

// Distinct reports whether the slice holds no card twice.
func Distinct(cs []Card) bool {
	seen := make(Set, len(cs))
	for _, c := range cs {
		if seen.Contains(c) {
			return false
		}
		seen.Add(c)
	}
	return true
}
