package worker

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"workpool/internal/dispatch"
	"workpool/internal/logger"
)

// errGoexit はジョブが runtime.Goexit を呼んだときの panic 値
var errGoexit = errors.New("job called runtime.Goexit")

// JobPanic はジョブの異常終了を表す
type JobPanic struct {
	WorkerID int
	Value    any
	Stack    []byte
}

func (e *JobPanic) Error() string {
	return fmt.Sprintf("worker %d: job panicked: %v", e.WorkerID, e.Value)
}

// Unwrap は panic 値が error ならそれを返す
func (e *JobPanic) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// worker は個々のワーカーゴルーチン
type worker struct {
	id            int
	rx            *sharedReceiver
	containFaults bool
	hooks         Hooks
	alive         *atomic.Int32
	log           logger.Scoped

	done  chan struct{}
	fault *JobPanic
}

func newWorker(id int, rx *sharedReceiver, containFaults bool, hooks Hooks, alive *atomic.Int32) *worker {
	return &worker{
		id:            id,
		rx:            rx,
		containFaults: containFaults,
		hooks:         hooks,
		alive:         alive,
		log:           logger.With(fmt.Sprintf("worker-%d", id)),
		done:          make(chan struct{}),
	}
}

// run はワーカーのメインループを実行する
// 停止シグナルを受け取るか、ジョブが panic するまで戻らない
func (w *worker) run() {
	defer close(w.done)

	exited := false
	defer func() {
		w.alive.Add(-1)
		if !exited {
			w.recordFault(recover(), debug.Stack())
		}
		if w.hooks.OnExit != nil {
			w.hooks.OnExit(w.id)
		}
	}()

	if w.hooks.OnStart != nil {
		w.hooks.OnStart(w.id)
	}

	w.loop()
	exited = true
	w.log.Debug("stop received, exiting")
}

func (w *worker) loop() {
	for {
		entry, err := w.rx.next()
		if err != nil {
			panic(fmt.Errorf("worker: receive: %w", err))
		}

		switch entry.Kind {
		case dispatch.KindStop:
			return
		case dispatch.KindJob:
			w.invoke(entry.Job)
		}
	}
}

// invoke はジョブを同期的に実行する
func (w *worker) invoke(job Job) {
	if w.containFaults {
		w.invokeContained(job)
		return
	}

	start := time.Now()
	job()
	if w.hooks.OnFinish != nil {
		w.hooks.OnFinish(w.id, time.Since(start))
	}
}

// invokeContained は panic を回収し、ワーカーを生かしたままにする
func (w *worker) invokeContained(job Job) {
	start := time.Now()
	finished := false

	defer func() {
		if finished {
			return
		}
		r := recover()
		if r == nil {
			// Goexit は回収できない。run 側で記録される
			return
		}
		fault := &JobPanic{WorkerID: w.id, Value: r, Stack: debug.Stack()}
		w.log.Error("job panicked (contained): %v", r)
		if w.hooks.OnFault != nil {
			w.hooks.OnFault(fault)
		}
	}()

	job()
	finished = true
	if w.hooks.OnFinish != nil {
		w.hooks.OnFinish(w.id, time.Since(start))
	}
}

// recordFault はワーカーを終了させた panic を保存する
func (w *worker) recordFault(r any, stack []byte) {
	if r == nil {
		r = errGoexit
	}
	w.fault = &JobPanic{WorkerID: w.id, Value: r, Stack: stack}
	w.log.Error("job panicked, worker terminated: %v", r)
	if w.hooks.OnFault != nil {
		w.hooks.OnFault(w.fault)
	}
}

// join はワーカーの終了を待ち、異常終了なら原因を返す
func (w *worker) join() *JobPanic {
	<-w.done
	return w.fault
}
