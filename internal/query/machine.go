package query

import "fmt"

// operands is implemented by each evaluator's operand representation.
// The machine owns traversal and stop-word handling; operands own lookup
// and set algebra.
type operands[T any] interface {
	term(text string) T
	section(name string, x T) (T, error)
	combine(kind Kind, left, right T) T
	isStop(x T) bool
}

// run executes a postfix sequence and returns the single remaining operand.
func run[T any](p *Postfix, ops operands[T]) (T, error) {
	var zero T
	stack := make([]T, 0, p.Terms)
	pop := func() (T, bool) {
		if len(stack) == 0 {
			return zero, false
		}
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return x, true
	}

	for i, in := range p.Instrs {
		switch {
		case in.Kind == KindTerm:
			stack = append(stack, ops.term(in.Text))

		case in.Kind == KindSection:
			x, ok := pop()
			if !ok {
				return zero, fmt.Errorf("%w: section at %d has no operand", ErrIllegalStatement, i)
			}
			if ops.isStop(x) {
				stack = append(stack, x)
				continue
			}
			filtered, err := ops.section(in.Text, x)
			if err != nil {
				return zero, err
			}
			stack = append(stack, filtered)

		case in.Kind.IsOperator():
			right, ok1 := pop()
			left, ok2 := pop()
			if !ok1 || !ok2 {
				return zero, fmt.Errorf("%w: %s at %d lacks operands", ErrIllegalStatement, in.Kind, i)
			}
			switch {
			case ops.isStop(left):
				stack = append(stack, right)
			case ops.isStop(right):
				stack = append(stack, left)
			default:
				stack = append(stack, ops.combine(in.Kind, left, right))
			}

		default:
			return zero, fmt.Errorf("%w: unknown instruction %d", ErrIllegalStatement, in.Kind)
		}
	}

	if len(stack) != 1 {
		return zero, fmt.Errorf("%w: %d operands left on stack", ErrIllegalStatement, len(stack))
	}
	return stack[0], nil
}
