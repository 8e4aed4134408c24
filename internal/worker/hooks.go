package worker

import "time"

// Hooks はプールのライフサイクル通知
// 各関数はワーカーゴルーチン（OnSubmit は呼び出し側）から同期的に呼ばれる
type Hooks struct {
	OnSubmit func()
	OnStart  func(workerID int)
	OnFinish func(workerID int, elapsed time.Duration)
	OnFault  func(fault *JobPanic)
	OnExit   func(workerID int)
}

// ChainHooks は複数の Hooks を順番に呼ぶ Hooks を返す
func ChainHooks(hooks ...Hooks) Hooks {
	var chained Hooks

	for _, h := range hooks {
		if h.OnSubmit != nil {
			prev, next := chained.OnSubmit, h.OnSubmit
			chained.OnSubmit = func() {
				if prev != nil {
					prev()
				}
				next()
			}
		}
		if h.OnStart != nil {
			prev, next := chained.OnStart, h.OnStart
			chained.OnStart = func(id int) {
				if prev != nil {
					prev(id)
				}
				next(id)
			}
		}
		if h.OnFinish != nil {
			prev, next := chained.OnFinish, h.OnFinish
			chained.OnFinish = func(id int, elapsed time.Duration) {
				if prev != nil {
					prev(id, elapsed)
				}
				next(id, elapsed)
			}
		}
		if h.OnFault != nil {
			prev, next := chained.OnFault, h.OnFault
			chained.OnFault = func(fault *JobPanic) {
				if prev != nil {
					prev(fault)
				}
				next(fault)
			}
		}
		if h.OnExit != nil {
			prev, next := chained.OnExit, h.OnExit
			chained.OnExit = func(id int) {
				if prev != nil {
					prev(id)
				}
				next(id)
			}
		}
	}

	return chained
}
