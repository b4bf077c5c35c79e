// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package trie

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// This file provides the task framework used to recompute the commitments of
// the nodes modified by an insertion. Tasks form a tree: each task may depend
// on any number of child tasks, but at most one parent task depends on it.
// Tasks of disjoint subtrees are independent and run in parallel, the update
// of the root commitment is the last task to run.
//
// Usage:
//   1) collect all tasks, closed under dependencies, in topological order,
//      i.e. no task appears before any of its dependencies
//   2) call [runTasks] with the collected tasks
//
// These properties are not verified.

// task is a unit of work that becomes ready once all its dependencies have
// completed. When done, it notifies its parent task, if there is one.
type task struct {
	action          func()       // < the action to perform
	numDependencies atomic.Int32 // < number of dependencies before this task can run
	parentTask      *task        // < optional parent task to notify when done
}

// newTask creates a task waiting for the given number of dependencies.
func newTask(action func(), numDependencies int) *task {
	t := &task{action: action}
	t.numDependencies.Store(int32(numDependencies))
	return t
}

// run executes the task's action and returns the parent task if it became
// ready as a result, nil otherwise.
func (t *task) run() *task {
	t.action()
	if t.parentTask == nil {
		return nil
	}
	if t.parentTask.numDependencies.Add(-1) != 0 {
		return nil
	}
	return t.parentTask
}

// sequentialTaskLimit is the number of tasks below which a parallel execution
// does not pay off.
const sequentialTaskLimit = 20

// runTasks executes the given tasks, respecting their dependencies, and
// returns once all of them have completed. If dependencies are missing from
// the list, the function may deadlock.
func runTasks(tasks []*task) {
	if len(tasks) < sequentialTaskLimit {
		for _, task := range tasks {
			task.action()
		}
		return
	}

	workList := make([]*task, 0, len(tasks))
	for _, task := range tasks {
		if task.numDependencies.Load() == 0 {
			workList = append(workList, task)
		}
	}

	// Every worker claims ready tasks from the work list and follows the
	// chain of parent tasks becoming ready through its own work. Tasks only
	// become ready through the completion of their last dependency, so every
	// task is run exactly once.
	var next atomic.Int32
	process := func() {
		for {
			pos := int(next.Add(1) - 1)
			if pos >= len(workList) {
				return
			}
			for task := workList[pos]; task != nil; {
				task = task.run()
			}
		}
	}

	numWorkers := min(runtime.GOMAXPROCS(0), len(workList))
	var wg sync.WaitGroup
	for i_ := 0; i_ < numWorkers-1; i_++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			process()
		}()
	}
	process()
	wg.Wait()
}
