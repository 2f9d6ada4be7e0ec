// Package sqlexpr builds filter predicates as expression trees. A tree
// renders to parameterized SQL, with every literal bound as a parameter,
// and can be evaluated in Go against a single row.
package sqlexpr

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownFunction is returned for functions outside the allow-list.
var ErrUnknownFunction = errors.New("unknown SQL function")

// Expr is a node of a filter expression.
type Expr interface {
	render(r *renderer) error
	eval(row Row) (any, error)
}

// Row resolves a column to its numeric value. ok is false for null.
type Row func(column string) (value float64, ok bool)

// functions is the allow-list of scalar functions, with their Go
// equivalents for evaluation.
var functions = map[string]func(float64) float64{
	"sin":     math.Sin,
	"cos":     math.Cos,
	"radians": func(deg float64) float64 { return deg * math.Pi / 180 },
}

type column string

type number float64

type call struct {
	fn   string
	args []Expr
}

type binary struct {
	op          string
	left, right Expr
}

type conjunction []Expr

// Col references a table column.
func Col(name string) Expr { return column(name) }

// Num is a numeric literal, always rendered as a bound parameter.
func Num(v float64) Expr { return number(v) }

// Call applies a scalar function from the allow-list.
func Call(fn string, args ...Expr) Expr { return call{fn: fn, args: args} }

// Add returns l + r.
func Add(l, r Expr) Expr { return binary{"+", l, r} }

// Sub returns l - r.
func Sub(l, r Expr) Expr { return binary{"-", l, r} }

// Mul returns l * r.
func Mul(l, r Expr) Expr { return binary{"*", l, r} }

// Lt returns l < r.
func Lt(l, r Expr) Expr { return binary{"<", l, r} }

// Gt returns l > r.
func Gt(l, r Expr) Expr { return binary{">", l, r} }

// Ge returns l >= r.
func Ge(l, r Expr) Expr { return binary{">=", l, r} }

// And conjoins terms. Nested conjunctions are flattened.
func And(terms ...Expr) Expr {
	var flat conjunction
	for _, t := range terms {
		if c, ok := t.(conjunction); ok {
			flat = append(flat, c...)
			continue
		}
		flat = append(flat, t)
	}
	return flat
}

type renderer struct {
	sb   strings.Builder
	args []any
}

// Render returns the SQL text of e with ? placeholders and the arguments
// to bind, in order.
func Render(e Expr) (string, []any, error) {
	if e == nil {
		return "", nil, errors.New("nil expression")
	}
	var r renderer
	if err := e.render(&r); err != nil {
		return "", nil, err
	}
	return r.sb.String(), r.args, nil
}

func (c column) render(r *renderer) error {
	if err := ValidateIdentifier(string(c)); err != nil {
		return fmt.Errorf("invalid column: %w", err)
	}
	r.sb.WriteString(QuoteIdentifier(string(c)))
	return nil
}

func (n number) render(r *renderer) error {
	r.sb.WriteByte('?')
	r.args = append(r.args, float64(n))
	return nil
}

func (c call) render(r *renderer) error {
	if _, ok := functions[c.fn]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFunction, c.fn)
	}
	if len(c.args) != 1 {
		return fmt.Errorf("%s takes 1 argument, got %d", c.fn, len(c.args))
	}
	r.sb.WriteString(c.fn)
	r.sb.WriteByte('(')
	if err := c.args[0].render(r); err != nil {
		return err
	}
	r.sb.WriteByte(')')
	return nil
}

func (b binary) render(r *renderer) error {
	r.sb.WriteByte('(')
	if err := b.left.render(r); err != nil {
		return err
	}
	r.sb.WriteString(" " + b.op + " ")
	if err := b.right.render(r); err != nil {
		return err
	}
	r.sb.WriteByte(')')
	return nil
}

func (c conjunction) render(r *renderer) error {
	if len(c) == 0 {
		return errors.New("empty conjunction")
	}
	r.sb.WriteByte('(')
	for i, t := range c {
		if i > 0 {
			r.sb.WriteString(" AND ")
		}
		if err := t.render(r); err != nil {
			return err
		}
	}
	r.sb.WriteByte(')')
	return nil
}

// Eval evaluates e against row with SQL null semantics: arithmetic on null
// is null and a null condition does not match.
func Eval(e Expr, row Row) (bool, error) {
	if e == nil {
		return false, errors.New("nil expression")
	}
	v, err := e.eval(row)
	if err != nil {
		return false, err
	}
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	}
	return false, fmt.Errorf("expression is not a condition (got %T)", v)
}

func (c column) eval(row Row) (any, error) {
	v, ok := row(string(c))
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (n number) eval(Row) (any, error) {
	return float64(n), nil
}

func (c call) eval(row Row) (any, error) {
	fn, ok := functions[c.fn]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, c.fn)
	}
	if len(c.args) != 1 {
		return nil, fmt.Errorf("%s takes 1 argument, got %d", c.fn, len(c.args))
	}
	v, err := evalNumber(c.args[0], row)
	if err != nil || v == nil {
		return nil, err
	}
	return fn(*v), nil
}

func (b binary) eval(row Row) (any, error) {
	l, err := evalNumber(b.left, row)
	if err != nil {
		return nil, err
	}
	r, err := evalNumber(b.right, row)
	if err != nil {
		return nil, err
	}
	if l == nil || r == nil {
		return nil, nil
	}
	switch b.op {
	case "+":
		return *l + *r, nil
	case "-":
		return *l - *r, nil
	case "*":
		return *l * *r, nil
	case "<":
		return *l < *r, nil
	case ">":
		return *l > *r, nil
	case ">=":
		return *l >= *r, nil
	}
	return nil, fmt.Errorf("unknown operator %q", b.op)
}

func (c conjunction) eval(row Row) (any, error) {
	if len(c) == 0 {
		return nil, errors.New("empty conjunction")
	}
	sawNull := false
	for _, t := range c {
		v, err := t.eval(row)
		if err != nil {
			return nil, err
		}
		switch x := v.(type) {
		case nil:
			sawNull = true
		case bool:
			if !x {
				return false, nil
			}
		default:
			return nil, fmt.Errorf("AND operand is not a condition (got %T)", v)
		}
	}
	if sawNull {
		return nil, nil
	}
	return true, nil
}

func evalNumber(e Expr, row Row) (*float64, error) {
	v, err := e.eval(row)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return &x, nil
	}
	return nil, fmt.Errorf("expected a number, got %T", v)
}
