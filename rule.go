package monitor

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// CheckerFunc is a single rule predicate. It may record match artifacts in
// state for downstream handlers.
type CheckerFunc func(ctx context.Context, msg *Message, state *State) (bool, error)

// checker gives each predicate a stable identity so composing the same
// rule twice does not evaluate a predicate twice.
type checker struct {
	fn CheckerFunc
}

// Rule is a set of predicates that must all hold for a matcher to run.
//
// A Rule is immutable; And returns a new Rule with the union of both sets.
// The zero Rule has no predicates and always matches.
type Rule struct {
	checkers []*checker
}

// NewRule builds a Rule from predicate functions. Nil functions are skipped.
func NewRule(fns ...CheckerFunc) Rule {
	return Rule{}.AndFunc(fns...)
}

// Len returns the number of distinct predicates.
func (r Rule) Len() int {
	return len(r.checkers)
}

// And returns a Rule whose predicates are the union of r and others.
// With no arguments (or only empty rules) it returns r itself.
func (r Rule) And(others ...Rule) Rule {
	var added []*checker
	for _, o := range others {
		for _, c := range o.checkers {
			if !containsChecker(r.checkers, c) && !containsChecker(added, c) {
				added = append(added, c)
			}
		}
	}
	if len(added) == 0 {
		return r
	}
	merged := make([]*checker, 0, len(r.checkers)+len(added))
	merged = append(merged, r.checkers...)
	merged = append(merged, added...)
	return Rule{checkers: merged}
}

// AndFunc wraps each function as a predicate and ANDs it into r.
func (r Rule) AndFunc(fns ...CheckerFunc) Rule {
	var wrapped []Rule
	for _, fn := range fns {
		if fn != nil {
			wrapped = append(wrapped, Rule{checkers: []*checker{{fn: fn}}})
		}
	}
	return r.And(wrapped...)
}

// Or always fails with ErrOrNotSupported. Every predicate of a rule runs and
// the results are AND-ed; express alternatives inside a single predicate
// (FullMatch and Keyword accept several texts) or register two matchers.
func (r Rule) Or(Rule) (Rule, error) {
	return Rule{}, ErrOrNotSupported
}

// Check evaluates every predicate concurrently and returns the AND of the
// results. All predicates run even when one already returned false. A
// failing or panicking predicate makes Check return an error.
func (r Rule) Check(ctx context.Context, msg *Message, state *State) (bool, error) {
	if len(r.checkers) == 0 {
		return true, nil
	}

	results := make([]bool, len(r.checkers))
	errs := make([]error, len(r.checkers))

	var g errgroup.Group
	for i, c := range r.checkers {
		g.Go(func() error {
			errs[i] = safely(func() error {
				ok, err := c.fn(ctx, msg, state)
				results[i] = ok
				return err
			})
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		return false, err
	}
	for _, ok := range results {
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func containsChecker(list []*checker, c *checker) bool {
	for _, x := range list {
		if x == c {
			return true
		}
	}
	return false
}
