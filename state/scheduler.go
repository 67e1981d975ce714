package state

import (
	"fmt"
	"time"
)

// Dispatch dispatches the function to run on the executor goroutine without
// waiting for it to complete.
func (e *Env) Dispatch(fun func(*State) error) {
	defer func() {
		if r := recover(); r != nil {
			e.Cancel(fmt.Errorf("panic: %v", r))
		}
	}()
	select {
	case e.DispatchChannel <- fun:
	case <-e.Context.Done():
	}
}

// DispatchWait dispatches the function to run on the executor goroutine and
// waits for it to complete.
func (e *Env) DispatchWait(fun func(*State) (any, error)) (any, error) {
	ret := make(chan Pair[any, error], 1)
	e.Dispatch(func(s *State) error {
		res, err := fun(s)
		ret <- Pair[any, error]{res, err}
		return err
	})
	select {
	case res := <-ret:
		return res.V1, res.V2
	case <-e.Context.Done():
		return nil, e.Context.Err()
	}
}

func (e *Env) ScheduleTask(fun func(*State) error, delay time.Duration) {
	time.AfterFunc(delay, func() {
		e.Dispatch(fun)
	})
}

func (e *Env) repeatedTask(fun func(*State) error, delay time.Duration) {
	for e.Context.Err() == nil {
		e.Dispatch(fun)
		select {
		case <-e.Context.Done():
			return
		case <-time.After(delay):
		}
	}
}

// RepeatTask dispatches fun immediately and then every delay.
func (e *Env) RepeatTask(fun func(*State) error, delay time.Duration) {
	go e.repeatedTask(fun, delay)
}

// RepeatTaskAfter dispatches fun first after initial, then every delay.
// The protocol tasks wait out a full period (plus any desync offset),
// or the startup wait for the sink beacon loop, before their first
// action, so they use this over RepeatTask.
func (e *Env) RepeatTaskAfter(fun func(*State) error, initial, delay time.Duration) {
	go func() {
		select {
		case <-e.Context.Done():
			return
		case <-time.After(initial):
		}
		e.repeatedTask(fun, delay)
	}()
}
