// Package store is the document store client every feature reads and writes through.
// Documents are schemaless JSON objects grouped in named collections.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrNotFound is returned when the addressed document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when an update precondition does not hold.
	ErrConflict = errors.New("document precondition failed")
	// ErrInvalidField is returned for field names that are not plain identifiers.
	ErrInvalidField = errors.New("invalid field name")
	// ErrInvalidFilter is returned for unsupported operators or operand types.
	ErrInvalidFilter = errors.New("invalid filter")
)

// Op is a filter comparison operator.
type Op string

const (
	OpEq            Op = "=="
	OpNeq           Op = "!="
	OpIn            Op = "in"
	OpLt            Op = "<"
	OpLte           Op = "<="
	OpGt            Op = ">"
	OpGte           Op = ">="
	OpArrayContains Op = "array-contains"
)

// Document is a stored JSON object together with its id and write version.
type Document struct {
	ID      string
	Data    map[string]interface{}
	Version int64
}

// DocumentID is a pseudo-field that filters on the document id instead of its data.
const DocumentID = "__id"

// Filter is a single predicate on a top-level document field.
type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

// Where builds a Filter.
func Where(field string, op Op, value interface{}) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Query selects documents of one collection.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Desc       bool
	Limit      int
}

// Q starts a query on collection.
func Q(collection string, filters ...Filter) Query {
	return Query{Collection: collection, Filters: filters}
}

// Order returns a copy of q ordered by field.
func (q Query) Order(field string, desc bool) Query {
	q.OrderBy = field
	q.Desc = desc
	return q
}

// Take returns a copy of q limited to n documents.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

// Store is implemented by the Postgres and in-memory backends.
type Store interface {
	Find(ctx context.Context, collection, id string) (*Document, error)
	All(ctx context.Context, collection string) ([]Document, error)
	Get(ctx context.Context, q Query) ([]Document, error)
	Add(ctx context.Context, collection string, data map[string]interface{}) (string, error)
	// Set creates the document or merges data into the existing one.
	Set(ctx context.Context, collection, id string, data map[string]interface{}) error
	// Update merges patch into an existing document. When preconditions are
	// given the write only applies if all of them hold, otherwise ErrConflict.
	Update(ctx context.Context, collection, id string, patch map[string]interface{}, preconditions ...Filter) error
	Remove(ctx context.Context, collection, id string) error
	// RunInTx runs fn atomically: either every write made through tx is applied or none.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	// Changes signals after every committed write to collection.
	Changes(collection string) (<-chan struct{}, func())
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validateField(field string) error {
	if !identifier.MatchString(field) {
		return fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	return nil
}

func validateFilter(f Filter) error {
	if err := validateField(f.Field); err != nil {
		return err
	}
	if f.Field == DocumentID && f.Op == OpArrayContains {
		return fmt.Errorf("%w: %q does not apply to the document id", ErrInvalidFilter, f.Op)
	}
	switch f.Op {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte, OpArrayContains:
		return nil
	case OpIn:
		if _, ok := f.Value.([]string); !ok {
			return fmt.Errorf("%w: %q expects []string, got %T", ErrInvalidFilter, f.Op, f.Value)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, f.Op)
	}
}

func validateQuery(q Query) error {
	if q.Collection == "" {
		return fmt.Errorf("%w: empty collection", ErrInvalidFilter)
	}
	for _, f := range q.Filters {
		if err := validateFilter(f); err != nil {
			return err
		}
	}
	if q.OrderBy != "" {
		return validateField(q.OrderBy)
	}
	return nil
}
