package matching

// TagRef is a member-assigned tag as seen by the matcher.
type TagRef struct {
	ID       string
	Name     string
	Category string
}

// AttributeSet is a member's assigned tags partitioned by category. The
// service category carries no matching signal and is dropped during
// partitioning, though it still counts towards the member having tags at all.
// Sets are rebuilt from the assignment table on every matching request; they
// are never cached.
type AttributeSet struct {
	Industry []TagRef
	Interest []TagRef
	Need     []TagRef

	assigned int
}

// NewAttributeSet partitions raw tag references into an AttributeSet.
func NewAttributeSet(tags []TagRef) AttributeSet {
	set := AttributeSet{assigned: len(tags)}
	for _, tag := range tags {
		switch tag.Category {
		case "industry":
			set.Industry = append(set.Industry, tag)
		case "interest":
			set.Interest = append(set.Interest, tag)
		case "need":
			set.Need = append(set.Need, tag)
		}
	}
	return set
}

// Empty reports whether the member has no assigned tags at all. A member whose
// only tags are service-category is not empty; they simply score zero against
// everyone and produce an empty ranking.
func (s AttributeSet) Empty() bool {
	return s.assigned == 0
}

func (s AttributeSet) industryIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.Industry))
	for _, tag := range s.Industry {
		ids[tag.ID] = struct{}{}
	}
	return ids
}

func (s AttributeSet) interestIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.Interest))
	for _, tag := range s.Interest {
		ids[tag.ID] = struct{}{}
	}
	return ids
}
