package configlists

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"dqa/pkg/platform/sentinel"
)

// Names of the lists read by every assessment.
const (
	Exemptions   = "document_validation_exemptions"
	DefaultDates = "default_dates"
	NonAcronyms  = "non_acronyms"
)

var namePattern = regexp.MustCompile(`^\w+$`)

// ValidName reports whether name can address a list file.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Action is the kind of edit applied to a list.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
	ActionUpdate Action = "update"
)

// IsValid reports whether a is a known action.
func (a Action) IsValid() bool {
	switch a {
	case ActionAdd, ActionRemove, ActionUpdate:
		return true
	default:
		return false
	}
}

// Edit mutates a single entry of a list.
type Edit struct {
	Action   Action  `json:"action" enum:"add,remove,update" doc:"Edit to apply"`
	Value    *string `json:"value,omitempty" doc:"Value to add or remove"`
	OldValue *string `json:"old_value,omitempty" doc:"Value to replace"`
	NewValue *string `json:"new_value,omitempty" doc:"Replacement value"`
}

func (e *Edit) Normalize() {
	if e == nil {
		return
	}
	e.Action = Action(strings.ToLower(strings.TrimSpace(string(e.Action))))
}

// Validate checks that the fields required by the action are present.
func (e *Edit) Validate() error {
	if e == nil {
		return fmt.Errorf("edit is required: %w", sentinel.ErrInvalidInput)
	}
	if !e.Action.IsValid() {
		return fmt.Errorf("action must be 'add', 'remove' or 'update': %w", sentinel.ErrInvalidInput)
	}
	switch e.Action {
	case ActionAdd, ActionRemove:
		if e.Value == nil {
			return fmt.Errorf("'value' is required for action '%s': %w", e.Action, sentinel.ErrInvalidInput)
		}
	case ActionUpdate:
		if e.OldValue == nil || e.NewValue == nil {
			return fmt.Errorf("'old_value' and 'new_value' are required for action 'update': %w", sentinel.ErrInvalidInput)
		}
	}
	return nil
}

// apply returns the list after the edit, leaving values untouched.
func (e Edit) apply(values []string) ([]string, error) {
	switch e.Action {
	case ActionAdd:
		if slices.Contains(values, *e.Value) {
			return nil, fmt.Errorf("value '%s' already exists: %w", *e.Value, sentinel.ErrConflict)
		}
		out := append(slices.Clone(values), *e.Value)
		slices.Sort(out)
		return out, nil
	case ActionRemove:
		if !slices.Contains(values, *e.Value) {
			return nil, fmt.Errorf("value '%s' not found: %w", *e.Value, sentinel.ErrNotFound)
		}
		out := make([]string, 0, len(values))
		for _, v := range values {
			if v != *e.Value {
				out = append(out, v)
			}
		}
		return out, nil
	default:
		if !slices.Contains(values, *e.OldValue) {
			return nil, fmt.Errorf("value '%s' not found: %w", *e.OldValue, sentinel.ErrNotFound)
		}
		if slices.Contains(values, *e.NewValue) {
			return nil, fmt.Errorf("value '%s' already exists: %w", *e.NewValue, sentinel.ErrConflict)
		}
		out := make([]string, len(values))
		for i, v := range values {
			if v == *e.OldValue {
				v = *e.NewValue
			}
			out[i] = v
		}
		return out, nil
	}
}
