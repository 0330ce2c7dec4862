// Package value parses parameter default values into scalar tokens or
// (nested) sequences shaped by the parameter's dimension.
package value

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind distinguishes a scalar token from a sequence.
type Kind int

const (
	ScalarKind Kind = iota
	ListKind
)

func (k Kind) String() string {
	if k == ListKind {
		return "list"
	}
	return "scalar"
}

// Value is a parsed default value. Scalars carry Token; lists carry Items.
type Value struct {
	Kind  Kind
	Token string
	Items []Value
}

// Scalar returns a scalar value.
func Scalar(tok string) Value {
	return Value{Kind: ScalarKind, Token: tok}
}

// List returns a sequence value.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Kind: ListKind, Items: items}
}

// Strings returns a flat list of scalar tokens.
func Strings(tokens ...string) Value {
	items := make([]Value, len(tokens))
	for i, tok := range tokens {
		items[i] = Scalar(tok)
	}
	return List(items...)
}

// IsList reports whether v is a sequence.
func (v Value) IsList() bool {
	return v.Kind == ListKind
}

// Len is the number of top-level elements, 1 for a scalar.
func (v Value) Len() int {
	if v.Kind == ListKind {
		return len(v.Items)
	}
	return 1
}

// Tokens flattens v into its scalar tokens in order.
func (v Value) Tokens() []string {
	if v.Kind == ScalarKind {
		return []string{v.Token}
	}
	var out []string
	for _, item := range v.Items {
		out = append(out, item.Tokens()...)
	}
	return out
}

// String renders v in the array literal grammar, e.g. '{'{4, 4}, '{4, 4}}.
func (v Value) String() string {
	if v.Kind == ScalarKind {
		return v.Token
	}
	parts := make([]string, len(v.Items))
	for i, item := range v.Items {
		parts[i] = item.String()
	}
	return "'{" + strings.Join(parts, ", ") + "}"
}

// Equal reports whether both values have the same shape and tokens.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	if v.Kind == ScalarKind {
		return v.Token == other.Token
	}
	if len(v.Items) != len(other.Items) {
		return false
	}
	for i := range v.Items {
		if !v.Items[i].Equal(other.Items[i]) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes a scalar as a string and a list as an array.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Kind == ScalarKind {
		return json.Marshal(v.Token)
	}
	items := v.Items
	if items == nil {
		items = []Value{}
	}
	return json.Marshal(items)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var tok string
	if err := json.Unmarshal(data, &tok); err == nil {
		*v = Scalar(tok)
		return nil
	}
	var items []Value
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("value must be a string or an array: %w", err)
	}
	*v = List(items...)
	return nil
}
