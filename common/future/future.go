// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package future provides single-use placeholders for values computed by a
// background worker. A Promise is handed to the worker, the matching Future
// to the party waiting for the value:
//
//	promise, f := future.Create[T]()
//	requests <- request{..., promise: promise}
//	value, err := f.AwaitContext(ctx)
//
// Values that are known up front are wrapped by Immediate.
package future

import "context"

// Promise is the producer side of a Future. It must be fulfilled exactly once.
type Promise[T any] struct {
	c chan<- T
}

// Future is the consumer side of a Promise. It can be awaited once.
type Future[T any] struct {
	c <-chan T
}

// Create initializes a linked Promise and Future pair.
func Create[T any]() (Promise[T], Future[T]) {
	ch := make(chan T, 1)
	return Promise[T]{c: ch}, Future[T]{c: ch}
}

// Immediate creates a Future that is already fulfilled with the given value.
func Immediate[T any](value T) Future[T] {
	promise, future := Create[T]()
	promise.Fulfill(value)
	return future
}

// Fulfill provides the value of the associated Future. It never blocks.
func (p Promise[T]) Fulfill(value T) {
	p.c <- value
	close(p.c)
}

// Await blocks until the Future is fulfilled and returns its value.
func (f Future[T]) Await() T {
	return <-f.c
}

// AwaitContext is like Await, but gives up when the context is done.
func (f Future[T]) AwaitContext(ctx context.Context) (T, error) {
	select {
	case value := <-f.c:
		return value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
