package rules

import (
	"fmt"
	"strconv"
)

// ComparisonOp compares a counted value against a threshold.
// The values are bit masks over the primitive results equal (0b001),
// less (0b010) and greater (0b100); compound operators are unions.
type ComparisonOp uint8

const (
	Equal        ComparisonOp = 0b001
	Less         ComparisonOp = 0b010
	LessEqual    ComparisonOp = 0b011
	Greater      ComparisonOp = 0b100
	GreaterEqual ComparisonOp = 0b101
	NotEqual     ComparisonOp = 0b110
)

const (
	bitEqual = iota
	bitLess
	bitGreater
)

// Compare reports whether "a op b" holds.
func Compare(a, b int, op ComparisonOp) bool {
	flags := boolBit(a == b)<<bitEqual |
		boolBit(a < b)<<bitLess |
		boolBit(a > b)<<bitGreater
	return flags&uint8(op) != 0
}

func boolBit(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// DescribeComparison renders "op value" for tooltips, e.g. "3 or more".
func DescribeComparison(op ComparisonOp, value int) string {
	v := strconv.Itoa(value)
	switch op {
	case Equal:
		return "exactly " + v
	case NotEqual:
		return "not " + v
	case Greater:
		return "more than " + v
	case GreaterEqual:
		return v + " or more"
	case Less:
		return "less than " + v
	case LessEqual:
		return v + " or less"
	default:
		return fmt.Sprintf("<invalid comparison %d> %s", op, v)
	}
}

var opSymbols = map[string]ComparisonOp{
	"==": Equal,
	"!=": NotEqual,
	"<":  Less,
	"<=": LessEqual,
	">":  Greater,
	">=": GreaterEqual,
}

// ParseComparisonOp converts an operator symbol ("==", "<=", ...) into
// a ComparisonOp.
func ParseComparisonOp(s string) (ComparisonOp, error) {
	if op, ok := opSymbols[s]; ok {
		return op, nil
	}
	return 0, fmt.Errorf("unknown comparison operator %q", s)
}

// String returns the operator symbol.
func (op ComparisonOp) String() string {
	for sym, o := range opSymbols {
		if o == op {
			return sym
		}
	}
	return fmt.Sprintf("ComparisonOp(%d)", uint8(op))
}
