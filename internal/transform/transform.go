// Package transform turns domain values into JSON-ready structures: a
// Transformer picks the fields, a Serializer decides the envelope.
package transform

// Transformer converts a domain value into its wire field set.
type Transformer[T any] interface {
	Transform(v T) map[string]any
}

// TransformerFunc adapts a function to the Transformer interface.
type TransformerFunc[T any] func(v T) map[string]any

func (f TransformerFunc[T]) Transform(v T) map[string]any { return f(v) }

// Serializer wraps transformed data for output.
type Serializer interface {
	Item(data map[string]any) any
	Collection(data []map[string]any) any
}

// PlainSerializer outputs transformed data as-is, with no envelope.
type PlainSerializer struct{}

func (PlainSerializer) Item(data map[string]any) any         { return data }
func (PlainSerializer) Collection(data []map[string]any) any { return data }

// Manager applies transformers with a configured serializer.
type Manager struct {
	serializer Serializer
}

// NewManager returns a manager using s, or PlainSerializer when s is nil.
func NewManager(s Serializer) *Manager {
	if s == nil {
		s = PlainSerializer{}
	}
	return &Manager{serializer: s}
}

// Item transforms and serializes a single value.
func Item[T any](m *Manager, v T, t Transformer[T]) any {
	return m.serializer.Item(t.Transform(v))
}

// Collection transforms and serializes values, keeping their order. An
// empty input yields an empty, non-nil list.
func Collection[T any](m *Manager, vs []T, t Transformer[T]) any {
	out := make([]map[string]any, 0, len(vs))
	for _, v := range vs {
		out = append(out, t.Transform(v))
	}
	return m.serializer.Collection(out)
}
