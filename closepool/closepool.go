// SPDX-License-Identifier: GPL-3.0-or-later

// Package closepool collects named resources and releases them
// in a single operation, in reverse order of addition.
package closepool

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/rbmk-project/common/errclass"
)

// CloserFunc adapts a function to [io.Closer].
type CloserFunc func() error

// Close implements [io.Closer].
func (fx CloserFunc) Close() error {
	return fx()
}

// entry is a named [io.Closer].
type entry struct {
	name   string
	closer io.Closer
}

// Pool contains named [io.Closer] instances.
//
// The zero value is ready to use.
type Pool struct {
	// Logger is the OPTIONAL logger for structured logging.
	Logger *slog.Logger

	// entries contains what to close.
	entries []entry

	// mu provides mutual exclusion.
	mu sync.Mutex
}

// Add adds a named [io.Closer] to the pool.
func (p *Pool) Add(name string, closer io.Closer) {
	p.mu.Lock()
	p.entries = append(p.entries, entry{name: name, closer: closer})
	p.mu.Unlock()
}

// AddFunc is like [*Pool.Add] but takes a release function.
func (p *Pool) AddFunc(name string, fx func() error) {
	p.Add(name, CloserFunc(fx))
}

// Len returns the number of entries waiting to be closed.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Close closes every entry in reverse order of addition, so that
// resources depending on earlier ones are released first. The returned
// error joins all the errors, each prefixed with the entry name.
// Calling Close again only closes entries added in the meanwhile.
func (p *Pool) Close() error {
	p.mu.Lock()
	entries := p.entries
	p.entries = nil
	p.mu.Unlock()

	var errv []error
	for _, e := range slices.Backward(entries) {
		t0 := time.Now()
		err := e.closer.Close()
		if p.Logger != nil {
			p.Logger.Debug(
				"releaseDone",
				slog.String("name", e.name),
				slog.Any("err", err),
				slog.String("errClass", errclass.New(err)),
				slog.Duration("elapsed", time.Since(t0)),
			)
		}
		if err != nil {
			errv = append(errv, fmt.Errorf("%s: %w", e.name, err))
		}
	}
	return errors.Join(errv...)
}
