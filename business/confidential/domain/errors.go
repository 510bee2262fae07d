package domain

import "fmt"

// ValidationError reports the first rule a model breaks. It names the field
// and the rule but never carries the offending value.
type ValidationError struct {
	Model string
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Invalid %s: validation failed", e.Model)
}

// Detail is a value-free description safe to return to clients.
func (e *ValidationError) Detail() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Rule)
}

type checker struct {
	model string
	err   *ValidationError
}

func check(model string) *checker {
	return &checker{model: model}
}

func (c *checker) fail(field, rule string) {
	if c.err == nil {
		c.err = &ValidationError{Model: c.model, Field: field, Rule: rule}
	}
}

func (c *checker) nonNegative(field string, v int64) *checker {
	if v < 0 {
		c.fail(field, "must be >= 0")
	}
	return c
}

func (c *checker) between(field string, v, lo, hi int64) *checker {
	if v < lo || v > hi {
		c.fail(field, fmt.Sprintf("must be within %d..%d", lo, hi))
	}
	return c
}

func (c *checker) oneOf(field, v string, allowed ...string) *checker {
	for _, a := range allowed {
		if v == a {
			return c
		}
	}
	c.fail(field, fmt.Sprintf("must be one of %v", allowed))
	return c
}

func (c *checker) result() error {
	if c.err == nil {
		return nil
	}
	return c.err
}
