package store

import (
	"maps"
	"strconv"
	"strings"
)

// State is the JSON-like tree a Store holds. Maps handed out by a Store are
// shared with it and must be treated as read-only.
type State map[string]any

// Changes extracts the change payload from a store notification's data.
// It returns nil when the payload is missing or not a State.
func Changes(data ...any) State {
	if len(data) == 0 {
		return nil
	}
	switch c := data[0].(type) {
	case State:
		return c
	case map[string]any:
		return State(c)
	default:
		return nil
	}
}

// StateOf extracts the state a Set produced from a store notification's
// data. Handlers registered ahead of a re-entrant Set may observe a newer
// state through Get; StateOf always reports the one this change made. It
// returns nil when the notification did not come from Set.
func StateOf(data ...any) State {
	if len(data) < 2 {
		return nil
	}
	switch st := data[1].(type) {
	case State:
		return st
	case map[string]any:
		return State(st)
	default:
		return nil
	}
}

// merge returns a new map holding base overlaid with data, one level deep.
func merge(base, data State) State {
	next := make(State, len(base)+len(data))
	maps.Copy(next, base)
	maps.Copy(next, data)
	return next
}

// deepMerge recursively merges src into dst.
// Maps are merged recursively; other values in src replace those in dst.
func deepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for key, srcVal := range src {
		srcMap, srcIsMap := asMap(srcVal)
		dstMap, dstIsMap := asMap(dst[key])
		if srcIsMap && dstIsMap {
			dst[key] = deepMerge(dstMap, srcMap)
			continue
		}
		dst[key] = cloneValue(srcVal)
	}
	return dst
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case State:
		return m, true
	default:
		return nil, false
	}
}

// cloneValue creates a deep copy of maps and slices.
func cloneValue(val any) any {
	switch v := val.(type) {
	case map[string]any:
		return cloneMap(v)
	case State:
		return State(cloneMap(v))
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// lookup walks a dot-separated path through nested maps and slices.
func lookup(root map[string]any, path string) (any, bool) {
	if root == nil {
		return nil, false
	}
	var current any = root
	for _, part := range strings.Split(path, ".") {
		switch node := current.(type) {
		case State:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			current = v
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			current = node[i]
		default:
			return nil, false
		}
	}
	return current, true
}
