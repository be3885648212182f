package store

import (
	"reflect"
	"strings"
)

// compare orders two normalized scalars of the same JSON type.
func compare(a, b interface{}) (int, bool) {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

// matches evaluates f against the document id and data. Documents missing the
// field never match, including for OpNeq.
func matches(id string, data map[string]interface{}, f Filter) (bool, error) {
	var got interface{} = id
	if f.Field != DocumentID {
		var ok bool
		if got, ok = data[f.Field]; !ok {
			return false, nil
		}
	}
	if f.Op == OpIn {
		for _, s := range f.Value.([]string) {
			if got == s {
				return true, nil
			}
		}
		return false, nil
	}
	want, err := normalize(f.Value)
	if err != nil {
		return false, err
	}
	switch f.Op {
	case OpEq:
		return reflect.DeepEqual(got, want), nil
	case OpNeq:
		return !reflect.DeepEqual(got, want), nil
	case OpArrayContains:
		arr, ok := got.([]interface{})
		if !ok {
			return false, nil
		}
		for _, el := range arr {
			if reflect.DeepEqual(el, want) {
				return true, nil
			}
		}
		return false, nil
	}
	c, ok := compare(got, want)
	if !ok {
		return false, nil
	}
	switch f.Op {
	case OpLt:
		return c < 0, nil
	case OpLte:
		return c <= 0, nil
	case OpGt:
		return c > 0, nil
	case OpGte:
		return c >= 0, nil
	}
	return false, nil
}

func matchesAll(id string, data map[string]interface{}, filters []Filter) (bool, error) {
	for _, f := range filters {
		ok, err := matches(id, data, f)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}
