// Package scheduler выполняет task шагов workflow.
//
// Структура:
//   - scheduler.go — Base: состояния task (CREATED → SUBMITTED → RUNNING →
//     DONE | FAILED), список незавершённых task, Stop
//   - runner.go    — TaskRunner: выполнение модуля в текущем процессе
//   - local.go     — LocalScheduler: горутины с семафором по процессорам
//   - cluster.go   — ClusterScheduler: задания внешнего планировщика через Backend
//   - taskfiles.go — файлы task (.ctx, .data, .done, .result)
//   - exectask.go  — RunTaskFile: выполнение task из файла в задании кластера
//
// Использование:
//
//	sched := scheduler.NewLocal(scheduler.LocalConfig{
//	    Threads:  8,
//	    Runner:   runner,
//	    OnResult: onResult,
//	    Logger:   logger,
//	})
//	if err := sched.Start(ctx); err != nil {
//	    return err
//	}
//	defer sched.Stop()
//
//	err := sched.Submit(step, taskContext)
//
// Повторов нет: ошибка выполнения становится неуспешным результатом.
package scheduler
