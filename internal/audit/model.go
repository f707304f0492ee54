package audit

import "time"

type Action string

const (
	ActionCreate     Action = "CREATE"
	ActionModify     Action = "MODIFY"
	ActionActivate   Action = "ACTIVATE"
	ActionDeactivate Action = "DEACTIVATE"
)

type SubjectKind string

const (
	SubjectPlan       SubjectKind = "plan"
	SubjectMembership SubjectKind = "membership"
)

// Entry is one immutable record of a mutation. Entries are only ever inserted,
// inside the same transaction as the mutation they describe.
type Entry struct {
	ID            int               `db:"id" json:"id"`
	SubjectKind   SubjectKind       `db:"subject_kind" json:"subject_kind"`
	SubjectID     int               `db:"subject_id" json:"subject_id"`
	Action        Action            `db:"action" json:"action"`
	ChangedFields []string          `json:"changed_fields"`
	Before        map[string]string `json:"before,omitempty"`
	After         map[string]string `json:"after,omitempty"`
	Description   string            `db:"description" json:"description"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
}

// Field is a named value in a snapshot; snapshots keep declaration order so
// changed-field lists are stable.
type Field struct {
	Name  string
	Value string
}

type Snapshot []Field

// Diff compares two snapshots field by field, in before's order. A nil before
// means everything in after counts as changed (creation).
func Diff(before, after Snapshot) (changed []string, beforeVals, afterVals map[string]string) {
	beforeVals = make(map[string]string)
	afterVals = make(map[string]string)

	if before == nil {
		for _, f := range after {
			changed = append(changed, f.Name)
			afterVals[f.Name] = f.Value
		}
		return changed, nil, afterVals
	}

	afterByName := make(map[string]string, len(after))
	for _, f := range after {
		afterByName[f.Name] = f.Value
	}

	for _, f := range before {
		av, ok := afterByName[f.Name]
		if !ok || av == f.Value {
			continue
		}
		changed = append(changed, f.Name)
		beforeVals[f.Name] = f.Value
		afterVals[f.Name] = av
	}

	if len(changed) == 0 {
		return nil, nil, nil
	}
	return changed, beforeVals, afterVals
}
