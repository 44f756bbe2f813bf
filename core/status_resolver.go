package core

// StatusConfig drives the active/inactive derivation for user records.
// ActiveGroups is the allow-list of directory group ids whose members count
// as active.
type StatusConfig struct {
	FieldID         int      `koanf:"field_id" mapstructure:"field_id"`
	ActiveValueID   string   `koanf:"active_value_id" mapstructure:"active_value_id"`
	InactiveValueID string   `koanf:"inactive_value_id" mapstructure:"inactive_value_id"`
	ActiveGroups    []string `koanf:"active_groups" mapstructure:"active_groups"`
}

// StatusResolver derives a user's status choice value from account-enabled
// state and group membership. It bypasses generic coercion: membership in an
// active group is not a property projection.
type StatusResolver struct {
	config StatusConfig
}

func NewStatusResolver(config StatusConfig) *StatusResolver {
	return &StatusResolver{config: config}
}

func (r *StatusResolver) Enabled() bool {
	return r != nil && r.config.FieldID > 0
}

func (r *StatusResolver) FieldID() int {
	if r == nil {
		return 0
	}
	return r.config.FieldID
}

// UserStatus computes the status value for a user. For a new record (nil
// existing) it always returns the computed status; for an existing record it
// returns nil when the stored status already matches, so the diff omits the
// field.
func (r *StatusResolver) UserStatus(user DirectoryUser, existing *TargetRecord, groupIDs []string) *FieldValue {
	if !r.Enabled() {
		return nil
	}

	valueID := r.config.InactiveValueID
	if r.isActive(user, groupIDs) {
		valueID = r.config.ActiveValueID
	}
	computed := NewChoiceValue(r.config.FieldID, valueID)

	if existing == nil {
		return &computed
	}
	if stored, ok := existing.Value(r.config.FieldID); ok && stored.Text == valueID {
		return nil
	}
	return &computed
}

// isActive requires the account to be enabled and at least one membership in
// the allow-list.
func (r *StatusResolver) isActive(user DirectoryUser, groupIDs []string) bool {
	if user.AccountEnabled == nil || !*user.AccountEnabled {
		return false
	}
	for _, groupID := range groupIDs {
		for _, active := range r.config.ActiveGroups {
			if groupID == active {
				return true
			}
		}
	}
	return false
}
