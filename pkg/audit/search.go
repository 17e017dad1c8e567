package audit

import (
	"sort"
)

// Search applies the filter's conditions conjunctively over the audit
// log and returns matches newest-first. Limit/Offset paginate; a Limit
// of zero returns everything after Offset.
func (l *Log) Search(filter SearchFilter) []Event {
	matched := l.query(func(e Event) bool { return filterMatches(filter, e) })

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched
}

func filterMatches(f SearchFilter, e Event) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.ResourceID != "" && e.ResourceID != f.ResourceID {
		return false
	}
	if len(f.Actions) > 0 && !containsAction(f.Actions, e.Action) {
		return false
	}
	if f.Start != nil && e.Timestamp.Before(*f.Start) {
		return false
	}
	if f.End != nil && e.Timestamp.After(*f.End) {
		return false
	}
	return true
}

func containsAction(actions []string, action string) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}
