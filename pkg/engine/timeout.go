package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/chazu/strata/pkg/model"
)

// EvalTimeout is the default limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs longer than the engine
	// allows.
	ErrTimeout = errors.New("evaluation timed out")
	// ErrSuperseded is returned to a caller whose evaluation was overtaken
	// by a newer one on the same engine.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

type evalResult struct {
	doc    *model.Document
	errors []EvalError
	err    error
}

// wait blocks until evaluation gen reports on ch or the engine's timeout
// passes. A late result is dropped by the buffered channel; a result for
// an older generation is discarded.
func (e *Engine) wait(ch <-chan evalResult, gen uint64) (*model.Document, []EvalError, error) {
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if gen != e.currentGeneration() {
			return nil, nil, ErrSuperseded
		}
		return res.doc, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	}
}

func (e *Engine) currentGeneration() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}
