package consumer

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/taskgraph/pkg/domain"
	"github.com/aretw0/taskgraph/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

// Redactor masks payload and node log values whose keys match one of its
// patterns before handing the event to the next consumer.
type Redactor struct {
	next     ports.EventsConsumer
	patterns []*regexp.Regexp
}

// Redact wraps next. Patterns are regular expressions matched against map keys
// at any depth.
func Redact(next ports.EventsConsumer, patterns ...string) (*Redactor, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return &Redactor{next: next, patterns: compiled}, nil
}

func (r *Redactor) Accept(ctx context.Context, request domain.ClientRequest, event domain.FragmentEvent) {
	if len(r.patterns) == 0 {
		r.next.Accept(ctx, request, event)
		return
	}

	// Events are shared between consumers, so masking works on copies.
	event.Fragment = event.Fragment.Clone()
	r.mask(event.Fragment.Payload)

	if len(event.Log) > 0 {
		log := make([]domain.TraceEntry, len(event.Log))
		for i, entry := range event.Log {
			if entry.NodeLog != nil {
				entry.NodeLog, _ = domain.CloneValue(entry.NodeLog).(map[string]any)
				r.mask(entry.NodeLog)
			}
			log[i] = entry
		}
		event.Log = log
	}

	if len(request.Headers) > 0 {
		headers := make(map[string][]string, len(request.Headers))
		for k, v := range request.Headers {
			if r.matches(k) {
				v = []string{Mask}
			}
			headers[k] = v
		}
		request.Headers = headers
	}

	r.next.Accept(ctx, request, event)
}

func (r *Redactor) mask(m map[string]any) {
	for k, v := range m {
		if r.matches(k) {
			m[k] = Mask
			continue
		}
		switch child := v.(type) {
		case map[string]any:
			r.mask(child)
		case []any:
			for _, item := range child {
				if sub, ok := item.(map[string]any); ok {
					r.mask(sub)
				}
			}
		}
	}
}

func (r *Redactor) matches(key string) bool {
	for _, p := range r.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
