//go:build test

package testutils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingT struct {
	failures []string
}

func (r *recordingT) Helper() {}

func (r *recordingT) Errorf(format string, args ...interface{}) {
	r.failures = append(r.failures, fmt.Sprintf(format, args...))
}

func TestJSONAsserter(t *testing.T) {
	tests := []struct {
		name     string
		actual   string
		expected string
		opts     []Option
		fails    bool
	}{
		{name: "equal objects", actual: `{"a":1,"b":[1,2]}`, expected: `{"b":[1,2],"a":1}`},
		{name: "value differs", actual: `{"a":1}`, expected: `{"a":2}`, fails: true},
		{name: "top level arrays", actual: `[1,2,3]`, expected: `[1,2,3]`},
		{name: "array order matters", actual: `[3,1]`, expected: `[1,3]`, fails: true},
		{name: "array order ignored", actual: `[3,1]`, expected: `[1,3]`, opts: []Option{WithIgnoreArrayOrder(true)}},
		{name: "extra keys fail", actual: `{"a":1,"b":2}`, expected: `{"a":1}`, fails: true},
		{name: "extra keys ignored", actual: `{"a":1,"b":{"c":2}}`, expected: `{"a":1}`, opts: []Option{WithIgnoreExtraKeys(true)}},
		{name: "ignored field", actual: `{"a":1,"ts":5}`, expected: `{"a":1,"ts":7}`, opts: []Option{WithIgnoredFields("ts")}},
		{name: "invalid actual", actual: `{`, expected: `{}`, fails: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingT{}
			NewJSONAsserter(rec).WithOptions(tt.opts...).Assert(tt.actual, tt.expected)
			if tt.fails {
				assert.NotEmpty(t, rec.failures)
			} else {
				assert.Empty(t, rec.failures)
			}
		})
	}
}

func TestJSONAsserter_AssertValue(t *testing.T) {
	rec := &recordingT{}
	NewJSONAsserter(rec).AssertValue(map[string]int{"slot": 2}, `{"slot":2}`)
	assert.Empty(t, rec.failures)

	NewJSONAsserter(rec).AssertValue(make(chan int), `{}`)
	assert.Len(t, rec.failures, 1)
}

func TestTextAsserter(t *testing.T) {
	rec := &recordingT{}
	NewTextAsserter(rec).Assert("  a  \nb\t\n", "a\nb")
	assert.Empty(t, rec.failures)

	NewTextAsserter(rec).WithOptions(WithTrimSpace(false)).Assert(" a", "a")
	assert.Len(t, rec.failures, 1)

	diff := NewTextAsserter(rec).Diff("a\nc", "a\nb")
	assert.Contains(t, diff, "-b")
	assert.Contains(t, diff, "+c")

	colored := NewTextAsserter(rec).WithOptions(WithEnableColors(true)).Diff("x y", "x")
	assert.Contains(t, colored, "x·y")
}
