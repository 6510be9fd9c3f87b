package gpu

import (
	"context"
	"errors"
	"sync"
)

var errQueueClosed = errors.New("command queue closed")

type queueItem struct {
	fn      func() error
	barrier chan error
	reset   bool
}

// hostQueue is an in-order command queue drained by a single goroutine.
// After the first failing command every following command is skipped until a
// resetting barrier (Finish) hands the error to the caller.
type hostQueue struct {
	items chan queueItem

	sendMu sync.Mutex // guards closed and sends on items
	closed bool

	errMu sync.Mutex
	err   error

	done chan struct{}
}

func newHostQueue(depth int) *hostQueue {
	q := &hostQueue{
		items: make(chan queueItem, depth),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *hostQueue) run() {
	defer close(q.done)
	for item := range q.items {
		if item.barrier != nil {
			q.errMu.Lock()
			err := q.err
			if item.reset {
				q.err = nil
			}
			q.errMu.Unlock()
			item.barrier <- err
			continue
		}
		q.errMu.Lock()
		failed := q.err != nil
		q.errMu.Unlock()
		if failed {
			continue
		}
		if err := item.fn(); err != nil {
			q.errMu.Lock()
			q.err = err
			q.errMu.Unlock()
		}
	}
}

func (q *hostQueue) push(item queueItem) error {
	q.sendMu.Lock()
	defer q.sendMu.Unlock()
	if q.closed {
		return errQueueClosed
	}
	q.items <- item
	return nil
}

// Enqueue appends fn and returns without waiting for it.
func (q *hostQueue) Enqueue(fn func() error) error {
	return q.push(queueItem{fn: fn})
}

// Barrier waits until everything enqueued so far has run and returns the
// pending queue error. reset clears the error.
func (q *hostQueue) Barrier(ctx context.Context, reset bool) error {
	ch := make(chan error, 1)
	if err := q.push(queueItem{barrier: ch, reset: reset}); err != nil {
		return err
	}
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting commands and waits for the queue goroutine to drain.
func (q *hostQueue) Close() {
	q.sendMu.Lock()
	if q.closed {
		q.sendMu.Unlock()
		return
	}
	q.closed = true
	close(q.items)
	q.sendMu.Unlock()
	<-q.done
}
