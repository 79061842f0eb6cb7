package render

import (
	"runtime"
	"sync"
)

// rowTask asks a worker to render one image row.
type rowTask struct {
	Y int
}

// rowResult reports a finished row.
type rowResult struct {
	Y    int
	Hits int
}

// workerPool renders rows in parallel. Rows never overlap, so workers write
// straight into the shared frame without locking.
type workerPool struct {
	taskQueue   chan rowTask
	resultQueue chan rowResult
	numWorkers  int
	wg          sync.WaitGroup
	renderRow   func(y int) int
}

func newWorkerPool(rows, numWorkers int, renderRow func(y int) int) *workerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &workerPool{
		taskQueue:   make(chan rowTask, rows),
		resultQueue: make(chan rowResult, rows),
		numWorkers:  numWorkers,
		renderRow:   renderRow,
	}
}

// Start launches the workers.
func (wp *workerPool) Start() {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.run()
	}
}

// Stop closes the task queue and waits for in-flight rows.
func (wp *workerPool) Stop() {
	close(wp.taskQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
}

// Submit queues a row. The queue is sized for every row, so it never blocks.
func (wp *workerPool) Submit(task rowTask) {
	wp.taskQueue <- task
}

// Results returns the result channel; it is closed by Stop.
func (wp *workerPool) Results() <-chan rowResult {
	return wp.resultQueue
}

func (wp *workerPool) run() {
	defer wp.wg.Done()
	for task := range wp.taskQueue {
		wp.resultQueue <- rowResult{Y: task.Y, Hits: wp.renderRow(task.Y)}
	}
}
