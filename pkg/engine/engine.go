// Package engine evaluates wall model scripts. A script is Lisp source run
// in a sandboxed zygomys interpreter whose builtins (level, wall-type,
// layer, wall, ...) build a model.Document.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/strata/pkg/model"
	"github.com/chazu/strata/pkg/wall"
)

// EvalError is a non-fatal problem in user code, such as a parse error or
// a builtin called with bad arguments.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning is a validation finding that does not stop the model from
// being used.
type EvalWarning struct {
	Message   string
	ElementID wall.ID
}

// EvalResult bundles the full output of an evaluation.
type EvalResult struct {
	Document *model.Document
	Errors   []EvalError
	Warnings []EvalWarning
}

// OK reports whether evaluation produced a usable document.
func (r EvalResult) OK() bool {
	return r.Document != nil && len(r.Errors) == 0
}

// Engine runs model scripts. Each call to Evaluate uses a fresh sandbox,
// so evaluations are deterministic and Engine is safe for concurrent use.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	timeout    time.Duration
}

// NewEngine returns an Engine that aborts evaluations after timeout. A
// zero timeout means EvalTimeout.
func NewEngine(timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = EvalTimeout
	}
	return &Engine{timeout: timeout}
}

// Timeout returns the evaluation limit.
func (e *Engine) Timeout() time.Duration { return e.timeout }

// Evaluate runs source and returns the document it describes.
//
//   - On success: document, nil, nil
//   - On a parse or evaluation failure in user code: nil, errors, nil
//   - On a timeout or a panic: nil, nil, error
func (e *Engine) Evaluate(source string) (*model.Document, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		doc, evalErrs, err := e.evaluate(source)
		ch <- evalResult{doc: doc, errors: evalErrs, err: err}
	}()

	return e.wait(ch, gen)
}

// Check evaluates source and validates the resulting document. Validation
// errors are reported as EvalErrors, warnings as EvalWarnings.
func (e *Engine) Check(source string) (EvalResult, error) {
	doc, evalErrs, err := e.Evaluate(source)
	if err != nil {
		return EvalResult{}, err
	}
	res := EvalResult{Errors: evalErrs}
	if doc == nil {
		return res, nil
	}
	for _, f := range model.Validate(*doc) {
		if f.Severity == model.SeverityError {
			res.Errors = append(res.Errors, EvalError{Message: f.Error()})
			continue
		}
		res.Warnings = append(res.Warnings, EvalWarning{Message: f.Message, ElementID: f.ElementID})
	}
	if len(res.Errors) == 0 {
		res.Document = doc
	}
	return res, nil
}

func (e *Engine) evaluate(source string) (*model.Document, []EvalError, error) {
	b := newBuilder()
	if strings.TrimSpace(source) == "" {
		return b.document(), nil, nil
	}

	// The sandbox has no filesystem or system access.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return b.document(), nil, nil
}

// linePattern matches "Error on line N: ..." messages.
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches "line N: ..." messages.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError turns an interpreter error into EvalErrors, keeping
// the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
