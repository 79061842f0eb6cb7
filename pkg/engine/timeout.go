package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/sdfmarch/pkg/scene"
)

// EvalTimeout bounds one script run when the Engine sets no Timeout.
const EvalTimeout = 5 * time.Second

var (
	// ErrScriptTimeout is returned when a script is still running at the
	// deadline. Runaway loops are the usual cause.
	ErrScriptTimeout = errors.New("evaluation timed out")
	// ErrSuperseded is returned to a caller whose script finished after a
	// newer Evaluate call had started.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

// evalResult carries a finished script run back to the waiting caller.
type evalResult struct {
	scene  *scene.Scene
	errors []EvalError
	err    error
}

// waitWithTimeout blocks until the script run numbered gen reports on ch or
// timeout elapses. A scene is only handed back while gen is still the
// newest run recorded in currentGen.
//
// A timed-out script keeps its goroutine; whatever it sends later is stale
// by then and nobody reads it.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	timeout time.Duration,
	mu *sync.Mutex,
	currentGen *uint64,
) (*scene.Scene, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrScriptTimeout, timeout)
	case res := <-ch:
		mu.Lock()
		latest := *currentGen
		mu.Unlock()
		if gen != latest {
			return nil, nil, ErrSuperseded
		}
		return res.scene, res.errors, res.err
	}
}
