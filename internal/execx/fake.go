package execx

import (
	"context"
	"strings"
	"sync"
)

// Call records one invocation seen by FakeExecutor
type Call struct {
	Dir  string
	Argv []string
}

// FakeExecutor returns canned results keyed by the joined command line.
// Commands without a registered response fail with ErrNotFound.
type FakeExecutor struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	handlers  []fakeHandler
	calls     []Call
}

type fakeResponse struct {
	result *Result
	err    error
	dir    string
}

type fakeHandler struct {
	prefix string
	fn     func(Call) (*Result, error)
}

// NewFakeExecutor creates an executor with no registered commands
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{responses: make(map[string]fakeResponse)}
}

// On registers the output of a command; exit code zero
func (f *FakeExecutor) On(command string, stdout ...string) *FakeExecutor {
	return f.OnResult(command, &Result{Stdout: stdout})
}

// OnResult registers a full result for a command
func (f *FakeExecutor) OnResult(command string, result *Result) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[command] = fakeResponse{result: result}
	return f
}

// OnResultIn registers a result that only applies when the command runs in dir
func (f *FakeExecutor) OnResultIn(dir, command string, result *Result) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[dir+"|"+command] = fakeResponse{result: result, dir: dir}
	return f
}

// OnError registers an error for a command
func (f *FakeExecutor) OnError(command string, err error) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[command] = fakeResponse{err: err}
	return f
}

// OnFunc runs fn for every command line starting with prefix that has no
// exact registration. It lets tests react to arguments only known at run
// time, such as temp folders, and create the files a tool would write.
func (f *FakeExecutor) OnFunc(prefix string, fn func(Call) (*Result, error)) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, fakeHandler{prefix: prefix, fn: fn})
	return f
}

// Execute returns the registered response for argv
func (f *FakeExecutor) Execute(ctx context.Context, dir string, argv ...string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	command := strings.Join(argv, " ")
	call := Call{Dir: dir, Argv: append([]string(nil), argv...)}
	f.mu.Lock()
	f.calls = append(f.calls, call)

	resp, ok := f.responses[dir+"|"+command]
	if !ok {
		resp, ok = f.responses[command]
	}
	if !ok {
		for _, h := range f.handlers {
			if strings.HasPrefix(command, h.prefix) {
				f.mu.Unlock()
				return h.fn(call)
			}
		}
		f.mu.Unlock()
		return nil, ErrNotFound
	}
	f.mu.Unlock()
	if resp.err != nil {
		return nil, resp.err
	}
	copied := *resp.result
	return &copied, nil
}

// Calls returns the invocations seen so far
func (f *FakeExecutor) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}
