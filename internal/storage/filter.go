package storage

import "github.com/qdrant/go-client/qdrant"

// Filter is a match expression over record payload fields. The matchers
// build these instead of ad-hoc nested filter maps; the store compiles
// them into Qdrant's native filter form.
type Filter interface {
	condition() *qdrant.Condition
}

// Equals matches records whose keyword field equals Value.
type Equals struct {
	Field string
	Value string
}

func (e Equals) condition() *qdrant.Condition {
	return qdrant.NewMatch(e.Field, e.Value)
}

// AnyOf matches records whose keyword field equals any of Values.
type AnyOf struct {
	Field  string
	Values []string
}

func (a AnyOf) condition() *qdrant.Condition {
	return qdrant.NewMatchKeywords(a.Field, a.Values...)
}

// TextMatch matches records whose full-text indexed field contains
// Value. With a prefix tokenizer on the index this gives prefix
// semantics for partial words.
type TextMatch struct {
	Field string
	Value string
}

func (t TextMatch) condition() *qdrant.Condition {
	return qdrant.NewMatchText(t.Field, t.Value)
}

// And matches records satisfying every member expression.
type And []Filter

func (a And) condition() *qdrant.Condition {
	return qdrant.NewFilterAsCondition(compileFilter(a))
}

// compileFilter converts a Filter expression into a Qdrant filter.
// A nil filter compiles to nil (no filtering).
func compileFilter(f Filter) *qdrant.Filter {
	if f == nil {
		return nil
	}
	if and, ok := f.(And); ok {
		must := make([]*qdrant.Condition, 0, len(and))
		for _, member := range and {
			if member == nil {
				continue
			}
			must = append(must, member.condition())
		}
		return &qdrant.Filter{Must: must}
	}
	return &qdrant.Filter{Must: []*qdrant.Condition{f.condition()}}
}
