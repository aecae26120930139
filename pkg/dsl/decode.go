package dsl

import (
	"fmt"
	"sort"

	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// DecodeOptions turns a raw configuration document into engine options.
// Task nodes may use the shorthand forms described in the package documentation.
func DecodeOptions(raw map[string]any) (*domain.Options, error) {
	doc := make(map[string]any, len(raw))
	for k, v := range raw {
		doc[k] = v
	}

	if tasks, ok := doc["tasks"]; ok && tasks != nil {
		tasksMap, err := asMap(tasks, "tasks")
		if err != nil {
			return nil, err
		}
		normalized := make(map[string]any, len(tasksMap))
		for _, name := range sortedNames(tasksMap) {
			node, err := normalizeNode(tasksMap[name], "tasks."+name)
			if err != nil {
				return nil, err
			}
			normalized[name] = node
		}
		doc["tasks"] = normalized
	}

	var opts domain.Options
	if err := decode(doc, &opts); err != nil {
		return nil, err
	}
	switch opts.LogLevel {
	case "", domain.LogLevelInfo, domain.LogLevelError:
	default:
		return nil, fmt.Errorf("%w: logLevel %q must be %q or %q", domain.ErrConfiguration, opts.LogLevel, domain.LogLevelInfo, domain.LogLevelError)
	}
	if opts.Tasks == nil {
		opts.Tasks = make(domain.TaskDefinition)
	}
	if opts.Actions == nil {
		opts.Actions = make(map[string]domain.ActionOptions)
	}
	return &opts, nil
}

// DecodeNode turns one raw node description into node options.
func DecodeNode(raw any) (domain.NodeOptions, error) {
	if opts, ok := raw.(domain.NodeOptions); ok {
		return opts, nil
	}
	node, err := normalizeNode(raw, "node")
	if err != nil {
		return domain.NodeOptions{}, err
	}
	var opts domain.NodeOptions
	if err := decode(node, &opts); err != nil {
		return domain.NodeOptions{}, err
	}
	return opts, nil
}

// DecodeNodes turns a raw list of node descriptions into node options.
func DecodeNodes(raw any) ([]domain.NodeOptions, error) {
	switch list := raw.(type) {
	case nil:
		return nil, nil
	case []domain.NodeOptions:
		return list, nil
	case []any:
		out := make([]domain.NodeOptions, 0, len(list))
		for i, item := range list {
			opts, err := DecodeNode(item)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			out = append(out, opts)
		}
		return out, nil
	case []map[string]any:
		out := make([]domain.NodeOptions, 0, len(list))
		for i, item := range list {
			opts, err := DecodeNode(item)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			out = append(out, opts)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected a list of nodes, got %T", domain.ErrConfiguration, raw)
	}
}

func decode(input any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
		TagName:     "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	return nil
}

// normalizeNode rewrites shorthand node forms into the canonical {node, on} form.
func normalizeNode(raw any, path string) (map[string]any, error) {
	if opts, ok := raw.(domain.NodeOptions); ok {
		return nodeOptionsToMap(opts), nil
	}
	in, err := asMap(raw, path)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, 2)
	forms := 0
	for _, key := range []string{"node", "action", "subtasks"} {
		if _, ok := in[key]; ok {
			forms++
		}
	}
	if forms != 1 {
		return nil, fmt.Errorf("%w: %s must define exactly one of node, action or subtasks", domain.ErrConfiguration, path)
	}

	for _, key := range sortedNames(in) {
		value := in[key]
		switch key {
		case "node":
			spec, err := asMap(value, path+".node")
			if err != nil {
				return nil, err
			}
			spec, err = normalizeSpec(spec, path+".node")
			if err != nil {
				return nil, err
			}
			out["node"] = spec
		case "action":
			alias, ok := value.(string)
			if !ok || alias == "" {
				return nil, fmt.Errorf("%w: %s.action must be a non-empty string", domain.ErrConfiguration, path)
			}
			out["node"] = map[string]any{
				"factory": domain.ActionNodeFactory,
				"config":  map[string]any{domain.ActionConfigKey: alias},
			}
		case "subtasks":
			nested, err := normalizeList(value, path+".subtasks")
			if err != nil {
				return nil, err
			}
			config := map[string]any{domain.SubtasksConfigKey: nested}
			if limit, ok := in[domain.ParallelismConfigKey]; ok {
				config[domain.ParallelismConfigKey] = limit
			}
			out["node"] = map[string]any{"factory": domain.SubtasksNodeFactory, "config": config}
		case domain.ParallelismConfigKey:
			if _, ok := in["subtasks"]; !ok {
				return nil, fmt.Errorf("%w: %s.parallelism is only valid with subtasks", domain.ErrConfiguration, path)
			}
		case "on", "onTransitions":
			if _, dup := out["on"]; dup {
				return nil, fmt.Errorf("%w: %s defines both on and onTransitions", domain.ErrConfiguration, path)
			}
			transitions, err := asMap(value, path+"."+key)
			if err != nil {
				return nil, err
			}
			normalized := make(map[string]any, len(transitions))
			for _, label := range sortedNames(transitions) {
				next, err := normalizeNode(transitions[label], path+".on."+label)
				if err != nil {
					return nil, err
				}
				normalized[label] = next
			}
			out["on"] = normalized
		default:
			return nil, fmt.Errorf("%w: %s has unknown key %q", domain.ErrConfiguration, path, key)
		}
	}
	return out, nil
}

func normalizeSpec(spec map[string]any, path string) (map[string]any, error) {
	out := make(map[string]any, len(spec))
	for k, v := range spec {
		out[k] = v
	}
	if out["factory"] != domain.SubtasksNodeFactory {
		return out, nil
	}
	raw, ok := out["config"]
	if !ok || raw == nil {
		return out, nil
	}
	config, err := asMap(raw, path+".config")
	if err != nil {
		return nil, err
	}
	copied := make(map[string]any, len(config))
	for k, v := range config {
		copied[k] = v
	}
	if list, ok := copied[domain.SubtasksConfigKey]; ok {
		nested, err := normalizeList(list, path+".config.subtasks")
		if err != nil {
			return nil, err
		}
		copied[domain.SubtasksConfigKey] = nested
	}
	out["config"] = copied
	return out, nil
}

func normalizeList(raw any, path string) ([]any, error) {
	var items []any
	switch list := raw.(type) {
	case []any:
		items = list
	case []domain.NodeOptions:
		for _, opts := range list {
			items = append(items, opts)
		}
	case []map[string]any:
		for _, m := range list {
			items = append(items, m)
		}
	default:
		return nil, fmt.Errorf("%w: %s must be a list, got %T", domain.ErrConfiguration, path, raw)
	}
	out := make([]any, 0, len(items))
	for i, item := range items {
		node, err := normalizeNode(item, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	return out, nil
}

func nodeOptionsToMap(opts domain.NodeOptions) map[string]any {
	out := map[string]any{
		"node": map[string]any{"factory": opts.Node.Factory, "config": opts.Node.Config},
	}
	if len(opts.Transitions) > 0 {
		on := make(map[string]any, len(opts.Transitions))
		for label, next := range opts.Transitions {
			on[label] = nodeOptionsToMap(next)
		}
		out["on"] = on
	}
	return out
}

func asMap(raw any, path string) (map[string]any, error) {
	switch m := raw.(type) {
	case map[string]any:
		return m, nil
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s has non-string key %v", domain.ErrConfiguration, path, k)
			}
			out[key] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a mapping, got %T", domain.ErrConfiguration, path, raw)
	}
}

func sortedNames(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
