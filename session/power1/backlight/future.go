// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package backlight

import (
	"context"
)

// Future completes with the brightness percent set by the write that covered
// a request, or with the error of that write.
type Future struct {
	done    chan struct{}
	percent int
	err     error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func resolvedFuture(percent int, err error) *Future {
	f := newFuture()
	f.resolve(percent, err)
	return f
}

func (f *Future) resolve(percent int, err error) {
	f.percent = percent
	f.err = err
	close(f.done)
}

func (f *Future) Done() <-chan struct{} {
	return f.done
}

func (f *Future) Wait(ctx context.Context) (int, error) {
	select {
	case <-f.done:
		return f.percent, f.err
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// Result must only be called after Done is closed.
func (f *Future) Result() (int, error) {
	<-f.done
	return f.percent, f.err
}
