package models

// ConditionLogic combines the atoms of a condition set.
type ConditionLogic string

const (
	LogicAnd ConditionLogic = "and"
	LogicOr  ConditionLogic = "or"
)

// Operator is the closed set of comparison operators a condition atom may use.
// Anything outside this enumeration evaluates to false rather than erroring.
type Operator string

const (
	OperatorEquals         Operator = "equals"
	OperatorNotEquals      Operator = "not_equals"
	OperatorGreaterThan    Operator = "greater_than"
	OperatorLessThan       Operator = "less_than"
	OperatorGreaterOrEqual Operator = "greater_or_equal"
	OperatorLessOrEqual    Operator = "less_or_equal"
	OperatorContains       Operator = "contains"
	OperatorNotContains    Operator = "not_contains"
	OperatorStartsWith     Operator = "starts_with"
	OperatorEndsWith       Operator = "ends_with"
	OperatorIn             Operator = "in"
	OperatorNotIn          Operator = "not_in"
	OperatorIsEmpty        Operator = "is_empty"
	OperatorIsNotEmpty     Operator = "is_not_empty"
	OperatorIsNull         Operator = "is_null"
	OperatorIsNotNull      Operator = "is_not_null"
	OperatorBetween        Operator = "between"
	OperatorChangedTo      Operator = "changed_to"
	OperatorChangedFrom    Operator = "changed_from"
)

// PreviousSnapshotKey is the context key holding the pre-change snapshot that
// changed_to/changed_from atoms compare against.
const PreviousSnapshotKey = "_previous"

// ConditionAtom is a single field comparison against the execution context.
// Field is a dot-path ("student.risk_level"); Value is a literal, or an array
// for in/not_in/between.
type ConditionAtom struct {
	Field    string   `json:"field"    validate:"required"`
	Operator Operator `json:"operator" validate:"required"`
	Value    any      `json:"value,omitempty"`
}

// TriggerConfig gates whether an incoming event is allowed to start an execution.
// An empty condition set accepts every event.
type TriggerConfig struct {
	Conditions []ConditionAtom `json:"conditions,omitempty"`
	Logic      ConditionLogic  `json:"logic,omitempty"`
}
