// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package backlight

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	rng Range

	mu       sync.Mutex
	value    int
	writes   []int
	gets     int
	failNext error
	watchFn  func()
	getHook  func()

	gate    chan struct{}
	entered chan int
}

func newFakeBackend(rng Range, value int) *fakeBackend {
	return &fakeBackend{
		rng:     rng,
		value:   value,
		entered: make(chan int, 16),
	}
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Range() Range { return b.rng }

func (b *fakeBackend) Get() (int, error) {
	b.mu.Lock()
	b.gets++
	value := b.value
	hook := b.getHook
	b.getHook = nil
	b.mu.Unlock()

	if hook != nil {
		hook()
	}
	return value, nil
}

func (b *fakeBackend) Set(value int) (int, error) {
	b.mu.Lock()
	b.writes = append(b.writes, value)
	gate := b.gate
	fail := b.failNext
	b.failNext = nil
	b.mu.Unlock()

	b.entered <- value
	if gate != nil {
		<-gate
	}
	if fail != nil {
		return 0, fail
	}

	b.mu.Lock()
	b.value = value
	b.mu.Unlock()
	return value, nil
}

func (b *fakeBackend) SupportsHotplugNotify() bool { return true }

func (b *fakeBackend) Watch(fn func()) error {
	b.mu.Lock()
	b.watchFn = fn
	b.mu.Unlock()
	return nil
}

func (b *fakeBackend) Close() error { return nil }

func (b *fakeBackend) getWrites() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.writes...)
}

func (b *fakeBackend) getCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gets
}

func (b *fakeBackend) setValue(v int) {
	b.mu.Lock()
	b.value = v
	b.mu.Unlock()
}

func wait(t *testing.T, f *Future) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	percent, err := f.Wait(ctx)
	require.NotEqual(t, context.DeadlineExceeded, err)
	return percent, err
}

func TestController_Coalescing(t *testing.T) {
	b := newFakeBackend(Range{Min: 0, Max: 100}, 50)
	b.gate = make(chan struct{})
	c := NewController(b)

	first := c.SetBrightnessPercent(10)
	assert.Equal(t, 10, <-b.entered)

	var futures []*Future
	for i := 1; i <= 5; i++ {
		futures = append(futures, c.SetBrightnessPercent(10+i*10))
	}
	current, target := c.Brightness()
	assert.Equal(t, 50, current)
	assert.Equal(t, 60, target)

	b.gate <- struct{}{}
	percent, err := wait(t, first)
	require.NoError(t, err)
	assert.Equal(t, 10, percent)

	assert.Equal(t, 60, <-b.entered)
	for _, f := range futures {
		select {
		case <-f.Done():
			t.Fatal("resolved before its write completed")
		default:
		}
	}
	b.gate <- struct{}{}

	for _, f := range futures {
		percent, err := wait(t, f)
		require.NoError(t, err)
		assert.Equal(t, 60, percent)
	}
	assert.Equal(t, []int{10, 60}, b.getWrites())

	current, target = c.Brightness()
	assert.Equal(t, 60, current)
	assert.Equal(t, 60, target)
}

func TestController_SameValueNoWrite(t *testing.T) {
	b := newFakeBackend(Range{Min: 0, Max: 100}, 50)
	c := NewController(b)

	percent, err := wait(t, c.SetBrightnessPercent(50))
	require.NoError(t, err)
	assert.Equal(t, 50, percent)
	assert.Empty(t, b.getWrites())
}

func TestController_Clamp(t *testing.T) {
	b := newFakeBackend(Range{Min: 1, Max: 100}, 50)
	c := NewController(b)

	percent, err := wait(t, c.SetBrightnessPercent(0))
	require.NoError(t, err)
	assert.Equal(t, 0, percent)
	assert.Equal(t, []int{1}, b.getWrites())

	percent, err = wait(t, c.SetBrightnessPercent(150))
	require.NoError(t, err)
	assert.Equal(t, 100, percent)
	assert.Equal(t, []int{1, 100}, b.getWrites())
}

func TestController_WriteFailure(t *testing.T) {
	b := newFakeBackend(Range{Min: 0, Max: 100}, 50)
	b.failNext = errors.New("input/output error")
	c := NewController(b)

	var notified []int
	c.ConnectChanged(func(percent int) {
		notified = append(notified, percent)
	})

	percent, err := wait(t, c.SetBrightnessPercent(30))
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.Equal(t, -1, percent)

	current, target := c.Brightness()
	assert.Equal(t, 50, current)
	assert.Equal(t, 30, target)
	assert.Empty(t, notified)

	percent, err = wait(t, c.SetBrightnessPercent(30))
	require.NoError(t, err)
	assert.Equal(t, 30, percent)
	assert.Equal(t, []int{30}, notified)
}

func TestController_Steps(t *testing.T) {
	b := newFakeBackend(Range{Min: 0, Max: 100}, 50)
	c := NewController(b)

	percent, err := wait(t, c.StepUp())
	require.NoError(t, err)
	assert.Equal(t, 55, percent)

	percent, err = wait(t, c.StepDown())
	require.NoError(t, err)
	assert.Equal(t, 50, percent)

	_, err = wait(t, c.SetBrightnessPercent(100))
	require.NoError(t, err)
	percent, err = wait(t, c.StepUp())
	require.NoError(t, err)
	assert.Equal(t, 100, percent)

	percent, err = wait(t, c.CycleUp())
	require.NoError(t, err)
	assert.Equal(t, 0, percent)

	percent, err = wait(t, c.CycleUp())
	require.NoError(t, err)
	assert.Equal(t, 5, percent)
}

func TestController_DeviceRefresh(t *testing.T) {
	b := newFakeBackend(Range{Min: 0, Max: 100}, 50)
	c := NewController(b)
	c.RefreshDelay = 10 * time.Millisecond
	require.NotNil(t, b.watchFn)

	changed := make(chan int, 4)
	c.ConnectChanged(func(percent int) {
		changed <- percent
	})
	byDevice := make(chan int, 4)
	c.ConnectDeviceChanged(func(percent int) {
		byDevice <- percent
	})

	b.setValue(70)
	b.watchFn()
	b.watchFn()
	b.watchFn()

	select {
	case percent := <-changed:
		assert.Equal(t, 70, percent)
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}
	assert.Equal(t, 2, b.getCount())
	current, target := c.Brightness()
	assert.Equal(t, 70, current)
	assert.Equal(t, 70, target)

	select {
	case percent := <-byDevice:
		assert.Equal(t, 70, percent)
	case <-time.After(2 * time.Second):
		t.Fatal("no device change notification")
	}

	b.watchFn()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 3, b.getCount())
	assert.Len(t, changed, 0)

	// the notification following an own write is not an outside change
	_, err := wait(t, c.SetBrightnessPercent(30))
	require.NoError(t, err)
	assert.Equal(t, 30, <-b.entered)
	assert.Equal(t, 30, <-changed)
	b.watchFn()
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, changed, 0)
	assert.Len(t, byDevice, 0)
}

func TestController_RefreshDropsReadOverlappingWrite(t *testing.T) {
	b := newFakeBackend(Range{Min: 0, Max: 100}, 50)
	c := NewController(b)
	c.RefreshDelay = 10 * time.Millisecond

	changed := make(chan int, 4)
	c.ConnectChanged(func(percent int) {
		changed <- percent
	})

	hookDone := make(chan struct{})
	b.mu.Lock()
	b.getHook = func() {
		// a write starts and completes after the old value was read
		defer close(hookDone)
		_, err := wait(t, c.SetBrightnessPercent(80))
		assert.NoError(t, err)
	}
	b.mu.Unlock()

	c.RefreshFromDevice()
	select {
	case <-hookDone:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not read the device")
	}
	time.Sleep(50 * time.Millisecond)

	current, target := c.Brightness()
	assert.Equal(t, 80, current)
	assert.Equal(t, 80, target)
	assert.Equal(t, 80, <-changed)
	assert.Len(t, changed, 0)
	assert.Equal(t, []int{80}, b.getWrites())
}

func TestController_Disabled(t *testing.T) {
	c := NewController(nil)
	assert.False(t, c.Enabled())

	current, target := c.Brightness()
	assert.Equal(t, -1, current)
	assert.Equal(t, -1, target)

	percent, err := wait(t, c.SetBrightnessPercent(40))
	assert.Equal(t, -1, percent)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.NoError(t, c.Close())
}

func TestController_Close(t *testing.T) {
	b := newFakeBackend(Range{Min: 0, Max: 100}, 50)
	c := NewController(b)
	require.NoError(t, c.Close())

	_, err := wait(t, c.SetBrightnessPercent(20))
	assert.ErrorIs(t, err, ErrClosed)
}
