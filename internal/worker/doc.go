// Package worker выполняет задания планировщика кластера из очереди.
//
// # Обзор
//
// Worker — stateless демон (seqflow-worker), который выполняет задания,
// созданные QueueBackend'ом. Каждое задание — команда "seqflow exectask
// <ctxfile>", выполняющая один task. Worker отвечает за:
//
//   - Получение событий job.submitted из RabbitMQ (event-driven)
//   - Периодическую проверку заданий WAITING в БД (polling fallback)
//   - Запуск команды и сохранение stdout/stderr в каталоге task
//   - Отмену задания по флагу cancel_requested
//   - Запись кода завершения (COMPLETE)
//
// Результат task worker не читает: его читает планировщик из файлов task.
//
// # Ключевые компоненты
//
// ## Worker
//
//	w := worker.New(worker.Config{
//	    Store:   jobRepo,
//	    Conn:    mqConn,
//	    MaxJobs: 4,
//	    Metrics: metrics,
//	    Logger:  logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// ## Executor
//
//	type Executor interface {
//	    Execute(ctx context.Context, job *domain.QueueJob) (*ExecutionResult, error)
//	}
//
// CommandExecutor запускает команду дочерним процессом; stdout и stderr
// читают отдельные горутины в <taskdir>/<name>.out и <taskdir>/<name>.err.
//
// # Обработка задания
//
//  1. Получение ID задания (из очереди или polling)
//  2. Ожидание свободного слота (MaxJobs)
//  3. Claim: WAITING → RUNNING (задание берёт только один worker)
//  4. Выполнение команды, параллельно — проверка cancel_requested
//  5. Complete с кодом завершения (с повторами через backoff)
//
// Повторов выполнения нет: ненулевой код завершения — неуспех task.
package worker
