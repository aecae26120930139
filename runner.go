package taskgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/taskgraph/pkg/domain"
)

// Batch is the input document of a Runner: the fragments of one request.
type Batch struct {
	Request   domain.ClientRequest `json:"request"`
	Fragments []domain.Fragment    `json:"fragments"`
}

// EventRenderer turns an event into the text a Runner prints for it.
// This allows terminal rendering without coupling the core package to a UI.
type EventRenderer func(domain.FragmentEvent) (string, error)

// Runner reads batches from Input, executes them and writes the events to Output.
// Input holds one or more concatenated JSON batches. Without a Renderer every
// event is written as one JSON line.
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Renderer EventRenderer
}

// NewRunner creates a runner on stdin and stdout.
func NewRunner() *Runner {
	return &Runner{Input: os.Stdin, Output: os.Stdout}
}

// Run processes every batch until Input is exhausted.
// Compilation errors do not stop the run; they are joined into the returned error.
func (r *Runner) Run(ctx context.Context, engine *Engine) error {
	input, output := r.Input, r.Output
	if input == nil {
		input = os.Stdin
	}
	if output == nil {
		output = os.Stdout
	}

	dec := json.NewDecoder(input)
	enc := json.NewEncoder(output)
	var errs []error
	for {
		var batch Batch
		if err := dec.Decode(&batch); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("decode batch: %w", err)
		}

		events, err := engine.Execute(ctx, batch.Request, batch.Fragments)
		if err != nil {
			errs = append(errs, err)
		}
		for _, event := range events {
			if err := r.write(output, enc, event); err != nil {
				return err
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) write(w io.Writer, enc *json.Encoder, event domain.FragmentEvent) error {
	if r.Renderer == nil {
		return enc.Encode(event)
	}
	text, err := r.Renderer(event)
	if err != nil {
		return fmt.Errorf("render event: %w", err)
	}
	_, err = fmt.Fprintln(w, text)
	return err
}
