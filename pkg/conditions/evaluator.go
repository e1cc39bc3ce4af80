// Package conditions evaluates condition sets against an execution context.
//
// Evaluation is total: absent fields, type mismatches and unknown operators
// all resolve to false rather than erroring, so a malformed atom can never
// abort a traversal. The same evaluator backs workflow trigger acceptance,
// condition nodes and branch predicates.
package conditions

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/edupulse/pulseflow/pkg/models"
	"github.com/edupulse/pulseflow/pkg/template"
)

// Evaluate decides whether data satisfies the condition set. An empty set is
// always true. LogicAnd short-circuits on the first false atom, LogicOr on the
// first true one.
func Evaluate(atoms []models.ConditionAtom, logic models.ConditionLogic, data map[string]any) bool {
	if len(atoms) == 0 {
		return true
	}

	// Logic arrives from JSON in whatever case the author typed.
	if strings.EqualFold(string(logic), string(models.LogicOr)) {
		for _, atom := range atoms {
			if EvaluateAtom(atom, data) {
				return true
			}
		}

		return false
	}

	for _, atom := range atoms {
		if !EvaluateAtom(atom, data) {
			return false
		}
	}

	return true
}

// EvaluateAtom applies a single operator. Unknown operators are false.
func EvaluateAtom(atom models.ConditionAtom, data map[string]any) bool {
	current, present := template.Lookup(atom.Field, data)

	switch atom.Operator {
	case models.OperatorEquals:
		return looseEqual(current, atom.Value)
	case models.OperatorNotEquals:
		return !looseEqual(current, atom.Value)
	case models.OperatorGreaterThan:
		return compareNumeric(current, atom.Value, func(a, b float64) bool { return a > b })
	case models.OperatorLessThan:
		return compareNumeric(current, atom.Value, func(a, b float64) bool { return a < b })
	case models.OperatorGreaterOrEqual:
		return compareNumeric(current, atom.Value, func(a, b float64) bool { return a >= b })
	case models.OperatorLessOrEqual:
		return compareNumeric(current, atom.Value, func(a, b float64) bool { return a <= b })
	case models.OperatorContains:
		return compareStrings(current, atom.Value, strings.Contains)
	case models.OperatorNotContains:
		return compareStrings(current, atom.Value, func(s, sub string) bool { return !strings.Contains(s, sub) })
	case models.OperatorStartsWith:
		return compareStrings(current, atom.Value, strings.HasPrefix)
	case models.OperatorEndsWith:
		return compareStrings(current, atom.Value, strings.HasSuffix)
	case models.OperatorIn:
		return member(current, atom.Value)
	case models.OperatorNotIn:
		return isArray(atom.Value) && !member(current, atom.Value)
	case models.OperatorIsEmpty:
		return isEmpty(current)
	case models.OperatorIsNotEmpty:
		return !isEmpty(current)
	case models.OperatorIsNull:
		return !present || current == nil
	case models.OperatorIsNotNull:
		return present && current != nil
	case models.OperatorBetween:
		return between(current, atom.Value)
	case models.OperatorChangedTo:
		previous, hadPrevious := previousValue(atom.Field, data)

		return hadPrevious && looseEqual(current, atom.Value) && !looseEqual(previous, current)
	case models.OperatorChangedFrom:
		previous, hadPrevious := previousValue(atom.Field, data)

		return hadPrevious && looseEqual(previous, atom.Value) && !looseEqual(previous, current)
	default:
		return false
	}
}

// previousValue looks up the atom's field inside the _previous snapshot.
func previousValue(field string, data map[string]any) (any, bool) {
	snapshot, ok := data[models.PreviousSnapshotKey].(map[string]any)
	if !ok {
		return nil, false
	}

	return template.Lookup(field, snapshot)
}

// looseEqual compares across JSON-ish types: numbers compare numerically,
// everything else by stringified value, mirroring loose equality in authored
// conditions ("5" equals 5).
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	aNum, aOK := toNumber(a)
	bNum, bOK := toNumber(b)

	if aOK && bOK {
		return aNum == bNum
	}

	if reflect.DeepEqual(a, b) {
		return true
	}

	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func compareNumeric(a, b any, cmp func(a, b float64) bool) bool {
	aNum, aOK := toNumber(a)
	bNum, bOK := toNumber(b)

	if !aOK || !bOK {
		return false
	}

	return cmp(aNum, bNum)
}

func compareStrings(a, b any, cmp func(s, sub string) bool) bool {
	aStr, aOK := a.(string)
	bStr, bOK := b.(string)

	if !aOK || !bOK {
		return false
	}

	return cmp(strings.ToLower(aStr), strings.ToLower(bStr))
}

func member(value, arr any) bool {
	items, ok := toArray(arr)
	if !ok {
		return false
	}

	for _, item := range items {
		if looseEqual(value, item) {
			return true
		}
	}

	return false
}

func between(value, bounds any) bool {
	items, ok := toArray(bounds)
	if !ok || len(items) != 2 {
		return false
	}

	num, ok := toNumber(value)
	if !ok {
		return false
	}

	low, lowOK := toNumber(items[0])
	high, highOK := toNumber(items[1])

	if !lowOK || !highOK {
		return false
	}

	return num >= low && num <= high
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

func isArray(value any) bool {
	_, ok := toArray(value)

	return ok
}

func toArray(value any) ([]any, bool) {
	if items, ok := value.([]any); ok {
		return items, true
	}

	rv := reflect.ValueOf(value)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil, false
	}

	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}

	return items, true
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		num, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}

		return num, true
	default:
		return 0, false
	}
}
