package capability

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
)

// stringArg returns args[key] as a string. Numbers are formatted without a
// fractional part when they are whole.
func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", false
	}
	s := scalarString(v)
	return s, s != ""
}

// stringListArg returns args[key] as a list. A single scalar yields a
// one-element list; multi reports whether the caller passed an actual list.
func stringListArg(args map[string]any, key string) (ids []string, multi bool) {
	switch v := args[key].(type) {
	case []any:
		for _, item := range v {
			if s := scalarString(item); s != "" {
				ids = append(ids, s)
			}
		}
		return ids, true
	case []string:
		return v, true
	case nil:
		return nil, false
	default:
		if s := scalarString(v); s != "" {
			return []string{s}, false
		}
		return nil, false
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		return ""
	}
}

// queryFromArgs converts scalar and list arguments into query parameters,
// skipping the named keys.
func queryFromArgs(args map[string]any, skip ...string) url.Values {
	skipped := make(map[string]bool, len(skip))
	for _, k := range skip {
		skipped[k] = true
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		if !skipped[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	q := url.Values{}
	for _, k := range keys {
		switch v := args[k].(type) {
		case []any:
			for _, item := range v {
				if s := scalarString(item); s != "" {
					q.Add(k, s)
				}
			}
		default:
			if s := scalarString(v); s != "" {
				q.Set(k, s)
			}
		}
	}
	return q
}

func missing(args map[string]any, key string) bool {
	v, ok := args[key]
	if !ok || v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
