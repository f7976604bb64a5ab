package survey

import "strings"

// Op names a comparison operator usable in a search query.
type Op string

const (
	OpEq          Op = "eq"
	OpNe          Op = "ne"
	OpGt          Op = "gt"
	OpLt          Op = "lt"
	OpContains    Op = "contains"
	OpNotContains Op = "not_contains"
	OpStartsWith  Op = "startswith"
	OpEndsWith    Op = "endswith"
)

// knownOp reports whether op names a supported operator.
func knownOp(op Op) bool {
	switch op {
	case OpEq, OpNe, OpGt, OpLt, OpContains, OpNotContains, OpStartsWith, OpEndsWith:
		return true
	}
	return false
}

// compare applies op to a resolved value and the query operand. Type
// mismatches compare false rather than erroring, so a heterogeneous
// result set can be filtered without the caller guarding each path.
func compare(op Op, got, want Value) bool {
	switch op {
	case OpEq:
		return valueEq(got, want)
	case OpNe:
		return !valueEq(got, want)
	case OpGt:
		return valueGt(got, want)
	case OpLt:
		return valueGt(want, got)
	case OpContains:
		return valueContains(got, want)
	case OpNotContains:
		return !valueContains(got, want)
	case OpStartsWith:
		return got.Kind() == KindString && want.Kind() == KindString &&
			strings.HasPrefix(got.Str(), want.Str())
	case OpEndsWith:
		return got.Kind() == KindString && want.Kind() == KindString &&
			strings.HasSuffix(got.Str(), want.Str())
	}
	return false
}

func valueEq(a, b Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case KindNull:
		return true
	case KindString:
		return a.Str() == b.Str()
	case KindNumber:
		return a.Num() == b.Num()
	case KindBool:
		return a.Bool() == b.Bool()
	case KindList:
		if a.Len() != b.Len() {
			return false
		}
		for i := 0; i < a.Len(); i++ {
			ae, _ := a.Index(i)
			be, _ := b.Index(i)
			if !valueEq(ae, be) {
				return false
			}
		}
		return true
	case KindMap:
		af, bf := a.Fields(), b.Fields()
		if len(af) != len(bf) {
			return false
		}
		for i := range af {
			if af[i].Name != bf[i].Name || !valueEq(af[i].Value, bf[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// valueGt orders numbers numerically and strings lexicographically.
// Everything else is unordered and compares false.
func valueGt(a, b Value) bool {
	if a.Kind() == KindNumber && b.Kind() == KindNumber {
		return a.Num() > b.Num()
	}
	if a.Kind() == KindString && b.Kind() == KindString {
		return a.Str() > b.Str()
	}
	return false
}

// valueContains checks membership: element of a list, substring of a
// string, or key of a map.
func valueContains(got, want Value) bool {
	switch got.Kind() {
	case KindList:
		for _, el := range got.Elements() {
			if valueEq(el, want) {
				return true
			}
		}
		return false
	case KindString:
		return want.Kind() == KindString && strings.Contains(got.Str(), want.Str())
	case KindMap:
		if want.Kind() != KindString {
			return false
		}
		_, ok := got.Field(want.Str())
		return ok
	}
	return false
}
