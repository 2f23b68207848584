/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ttlcache

import (
	"bytes"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

// ErrLoadGoexit is returned to callers waiting for a load which called runtime.Goexit.
var ErrLoadGoexit = errors.New("runtime.Goexit was called during load")

// LoadPanicError is returned to callers waiting for a load which panicked.
// The caller which ran the load gets the panic re-raised instead.
type LoadPanicError struct {
	Value interface{}
	Stack []byte
}

func (p *LoadPanicError) Error() string {
	return fmt.Sprintf("panic during load: %v\n\n%s", p.Value, p.Stack)
}

func (p *LoadPanicError) Unwrap() error {
	err, ok := p.Value.(error)
	if !ok {
		return nil
	}
	return err
}

func newLoadPanicError(v interface{}) error {
	stack := debug.Stack()
	// Drop the "goroutine N [status]:" line, the goroutine may be gone by the time waiters read it.
	if line := bytes.IndexByte(stack, '\n'); line >= 0 {
		stack = stack[line+1:]
	}
	return &LoadPanicError{Value: v, Stack: stack}
}

type loadCall[V any] struct {
	wg  sync.WaitGroup
	val V
	err error
}

// loadGroup runs at most one load per id at a time. Callers arriving while a load is in flight
// wait for it and receive its result.
type loadGroup[V any] struct {
	mu    sync.Mutex
	calls map[string]*loadCall[V]
}

func (g *loadGroup[V]) Do(id string, fn func() (V, error)) (V, error) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[string]*loadCall[V])
	}
	if call, ok := g.calls[id]; ok {
		g.mu.Unlock()
		call.wg.Wait()
		return call.val, call.err
	}
	call := &loadCall[V]{}
	call.wg.Add(1)
	g.calls[id] = call
	g.mu.Unlock()

	return g.run(call, id, fn)
}

func (g *loadGroup[V]) run(call *loadCall[V], id string, fn func() (V, error)) (val V, err error) {
	normalReturn := false
	recovered := false

	// Two defers tell a panic apart from runtime.Goexit.
	defer func() {
		if !normalReturn && !recovered {
			call.err = ErrLoadGoexit
		}

		call.wg.Done()

		g.mu.Lock()
		delete(g.calls, id)
		g.mu.Unlock()

		if recovered {
			panic(call.err.(*LoadPanicError).Value)
		}

		val, err = call.val, call.err
	}()

	defer func() {
		if !normalReturn {
			if v := recover(); v != nil {
				call.err = newLoadPanicError(v)
				recovered = true
			}
		}
	}()
	call.val, call.err = fn()
	normalReturn = true

	return call.val, call.err
}
