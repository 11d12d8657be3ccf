package models

// All lists every entity managed by auto-migration, parents first
func All() []interface{} {
	return []interface{}{
		&Lead{},
		&Sequence{},
		&SequenceStep{},
		&SequenceLead{},
		&ActivityLog{},
	}
}
