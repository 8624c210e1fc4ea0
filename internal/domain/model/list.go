package model

// List is an ordered ranking, index 0 being the most preferred item.
//
// Order is the only representation of preference: entries never carry a
// stored score. Every helper returns a new slice and leaves the receiver
// untouched, so a List can be handed between owners without aliasing.
type List []RankedItem

// Clone returns a deep copy of l. A nil list clones to an empty, non-nil list.
func (l List) Clone() List {
	out := make(List, len(l))
	for i, it := range l {
		out[i] = it.Clone()
	}
	return out
}

// Len returns the number of entries.
func (l List) Len() int { return len(l) }

// IndexOf returns the position of id, or -1.
func (l List) IndexOf(id ItemID) int {
	for i, it := range l {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// Contains reports whether id is ranked.
func (l List) Contains(id ItemID) bool { return l.IndexOf(id) >= 0 }

// IDs returns the ids in rank order.
func (l List) IDs() []ItemID {
	ids := make([]ItemID, len(l))
	for i, it := range l {
		ids[i] = it.ID
	}
	return ids
}

// Without returns a copy of l with every entry for id removed.
func (l List) Without(id ItemID) List {
	out := make(List, 0, len(l))
	for _, it := range l {
		if it.ID == id {
			continue
		}
		out = append(out, it.Clone())
	}
	return out
}

// InsertAt removes any prior entry for item.ID and inserts item at idx,
// clamped to [0, len]. The index is interpreted against the list with the
// prior entry already removed.
func (l List) InsertAt(item RankedItem, idx int) List {
	base := l.Without(item.ID)
	if idx < 0 {
		idx = 0
	}
	if idx > len(base) {
		idx = len(base)
	}
	out := make(List, 0, len(base)+1)
	out = append(out, base[:idx]...)
	out = append(out, item.Clone())
	out = append(out, base[idx:]...)
	return out
}

// Normalize drops entries with an empty id and every repeated id after its
// first (best-ranked) occurrence.
func (l List) Normalize() List {
	seen := make(map[ItemID]struct{}, len(l))
	out := make(List, 0, len(l))
	for _, it := range l {
		if it.ID.IsZero() {
			continue
		}
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it.Clone())
	}
	return out
}

// SameOrder reports whether both lists rank the same ids in the same order.
func (l List) SameOrder(other List) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i].ID != other[i].ID {
			return false
		}
	}
	return true
}

// MergeDetails returns a copy of l where items present in details have their
// missing metadata filled. Order is untouched.
func (l List) MergeDetails(details map[ItemID]Details) List {
	out := make(List, len(l))
	for i, it := range l {
		if d, ok := details[it.ID]; ok {
			out[i] = it.WithDetails(d)
			continue
		}
		out[i] = it.Clone()
	}
	return out
}
