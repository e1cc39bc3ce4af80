package conditions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edupulse/pulseflow/pkg/models"
)

func atom(field string, op models.Operator, value any) models.ConditionAtom {
	return models.ConditionAtom{Field: field, Operator: op, Value: value}
}

func TestEvaluateAtom_Operators(t *testing.T) {
	data := map[string]any{
		"risk_level": "high",
		"score":      72.5,
		"attempts":   float64(3),
		"name":       "Maria Santos",
		"tags":       []any{"stem", "evening"},
		"empty_str":  "",
		"student": map[string]any{
			"email": "maria@example.com",
		},
	}

	tests := []struct {
		name string
		atom models.ConditionAtom
		want bool
	}{
		{"equals_match", atom("risk_level", models.OperatorEquals, "high"), true},
		{"equals_mismatch", atom("risk_level", models.OperatorEquals, "low"), false},
		{"equals_numeric_cross_type", atom("attempts", models.OperatorEquals, 3), true},
		{"equals_stringified_number", atom("attempts", models.OperatorEquals, "3"), true},
		{"not_equals", atom("risk_level", models.OperatorNotEquals, "low"), true},
		{"greater_than", atom("score", models.OperatorGreaterThan, 70), true},
		{"greater_than_false", atom("score", models.OperatorGreaterThan, 80), false},
		{"greater_than_numeric_string", atom("score", models.OperatorGreaterThan, "70"), true},
		{"less_than", atom("score", models.OperatorLessThan, 80), true},
		{"greater_or_equal_boundary", atom("score", models.OperatorGreaterOrEqual, 72.5), true},
		{"less_or_equal_boundary", atom("score", models.OperatorLessOrEqual, 72.5), true},
		{"contains", atom("name", models.OperatorContains, "Santos"), true},
		{"not_contains", atom("name", models.OperatorNotContains, "Silva"), true},
		{"starts_with", atom("name", models.OperatorStartsWith, "Maria"), true},
		{"ends_with", atom("student.email", models.OperatorEndsWith, "@example.com"), true},
		{"in", atom("risk_level", models.OperatorIn, []any{"medium", "high"}), true},
		{"in_false", atom("risk_level", models.OperatorIn, []any{"low"}), false},
		{"not_in", atom("risk_level", models.OperatorNotIn, []any{"low"}), true},
		{"is_empty_on_empty_string", atom("empty_str", models.OperatorIsEmpty, nil), true},
		{"is_empty_on_value", atom("name", models.OperatorIsEmpty, nil), false},
		{"is_not_empty_on_array", atom("tags", models.OperatorIsNotEmpty, nil), true},
		{"is_null_on_absent_field", atom("nonexistent", models.OperatorIsNull, nil), true},
		{"is_not_null_on_present_field", atom("name", models.OperatorIsNotNull, nil), true},
		{"between", atom("score", models.OperatorBetween, []any{70, 80}), true},
		{"between_outside", atom("score", models.OperatorBetween, []any{80, 90}), false},
		{"dot_path_lookup", atom("student.email", models.OperatorEquals, "maria@example.com"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateAtom(tt.atom, data))
		})
	}
}

func TestEvaluateAtom_FailClosed(t *testing.T) {
	data := map[string]any{"name": "Maria"}

	tests := []struct {
		name string
		atom models.ConditionAtom
	}{
		{"absent_field", atom("missing", models.OperatorEquals, "x")},
		{"unknown_operator", atom("name", models.Operator("matches_regex"), ".*")},
		{"numeric_compare_on_string", atom("name", models.OperatorGreaterThan, 1)},
		{"in_with_non_array_value", atom("name", models.OperatorIn, "Maria")},
		{"between_with_short_bounds", atom("name", models.OperatorBetween, []any{1})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, EvaluateAtom(tt.atom, data))
		})
	}
}

func TestEvaluateAtom_ChangedTo(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		want bool
	}{
		{
			name: "transition_into_value",
			data: map[string]any{
				"risk_level":                "high",
				models.PreviousSnapshotKey: map[string]any{"risk_level": "medium"},
			},
			want: true,
		},
		{
			name: "already_at_value",
			data: map[string]any{
				"risk_level":                "high",
				models.PreviousSnapshotKey: map[string]any{"risk_level": "high"},
			},
			want: false,
		},
		{
			name: "no_previous_snapshot",
			data: map[string]any{"risk_level": "high"},
			want: false,
		},
		{
			name: "current_not_target",
			data: map[string]any{
				"risk_level":                "medium",
				models.PreviousSnapshotKey: map[string]any{"risk_level": "low"},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateAtom(atom("risk_level", models.OperatorChangedTo, "high"), tt.data)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateAtom_ChangedFrom(t *testing.T) {
	changed := map[string]any{
		"risk_level":                "high",
		models.PreviousSnapshotKey: map[string]any{"risk_level": "low"},
	}
	unchanged := map[string]any{
		"risk_level":                "low",
		models.PreviousSnapshotKey: map[string]any{"risk_level": "low"},
	}

	assert.True(t, EvaluateAtom(atom("risk_level", models.OperatorChangedFrom, "low"), changed))
	assert.False(t, EvaluateAtom(atom("risk_level", models.OperatorChangedFrom, "low"), unchanged))
}

func TestEvaluate_Logic(t *testing.T) {
	data := map[string]any{"a": float64(1), "b": float64(2)}

	both := []models.ConditionAtom{
		atom("a", models.OperatorEquals, 1),
		atom("b", models.OperatorEquals, 2),
	}
	oneFalse := []models.ConditionAtom{
		atom("a", models.OperatorEquals, 1),
		atom("b", models.OperatorEquals, 99),
	}

	assert.True(t, Evaluate(both, models.LogicAnd, data))
	assert.False(t, Evaluate(oneFalse, models.LogicAnd, data))
	assert.True(t, Evaluate(oneFalse, models.LogicOr, data))
	assert.False(t, Evaluate([]models.ConditionAtom{
		atom("a", models.OperatorEquals, 0),
		atom("b", models.OperatorEquals, 0),
	}, models.LogicOr, data))

	// Empty condition sets accept everything.
	assert.True(t, Evaluate(nil, models.LogicAnd, data))
	assert.True(t, Evaluate(nil, models.LogicOr, data))

	// Unspecified logic defaults to AND.
	assert.False(t, Evaluate(oneFalse, "", data))

	// Logic spelling is case-insensitive.
	assert.True(t, Evaluate(oneFalse, "OR", data))
	assert.True(t, Evaluate(oneFalse, "Or", data))
	assert.False(t, Evaluate(oneFalse, "AND", data))
}
