package domain

import "maps"

// TaskKey is the fragment configuration entry naming the task to process it with.
const TaskKey = "data-task"

// Fragment is the unit of work processed by a task graph.
type Fragment struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Configuration map[string]any `json:"configuration,omitempty"`
	Body          string         `json:"body"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// TaskName returns the task named in the fragment configuration, if any.
func (f Fragment) TaskName() (string, bool) {
	v, ok := f.Configuration[TaskKey]
	if !ok {
		return "", false
	}
	name, ok := v.(string)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// Clone returns a deep copy of the fragment.
// Nested maps and slices are copied so concurrent walks never share mutable state.
func (f Fragment) Clone() Fragment {
	f.Configuration = cloneMap(f.Configuration)
	f.Payload = cloneMap(f.Payload)
	return f
}

// WithPayload returns a copy of the fragment with key set in its payload.
func (f Fragment) WithPayload(key string, value any) Fragment {
	payload := make(map[string]any, len(f.Payload)+1)
	maps.Copy(payload, f.Payload)
	payload[key] = value
	f.Payload = payload
	return f
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

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// CloneValue deep copies maps and slices found in v.
func CloneValue(v any) any {
	return cloneValue(v)
}
