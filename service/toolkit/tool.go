// Package toolkit exposes tools as JSON-in, JSON-out calls for agent
// frameworks. A Call never returns a Go error; failures become error envelopes.
package toolkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Tool is a named capability an agent can invoke with a JSON string.
type Tool interface {
	Name() string
	Description() string
	Call(ctx context.Context, input string) string
}

// Param describes one field of a tool's JSON input.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "string" or "number"
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

// Parameterized is implemented by tools that publish their input schema.
type Parameterized interface {
	Params() []Param
}

// ParamsOf returns t's parameters, or nil when it does not publish any.
func ParamsOf(t Tool) []Param {
	if p, ok := t.(Parameterized); ok {
		return p.Params()
	}
	return nil
}

// decodeInput parses input into v, rejecting unknown trailing data.
func decodeInput(input string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(input)))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return InvalidInput("invalid JSON input: %v", err)
	}
	if dec.More() {
		return InvalidInput("invalid JSON input: trailing data")
	}
	return nil
}

// flexString accepts either a JSON string or a JSON number.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*s = flexString(n.String())
	return nil
}

// requireUint checks that s is a base-unit integer.
func requireUint(field string, s *flexString) (string, error) {
	if s == nil || *s == "" {
		return "", InvalidInput("%s is required", field)
	}
	if _, err := strconv.ParseUint(string(*s), 10, 64); err != nil {
		return "", InvalidInput("%s must be a non-negative integer string, got %q", field, string(*s))
	}
	return string(*s), nil
}
