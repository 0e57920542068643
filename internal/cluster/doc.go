// Package cluster содержит реализации scheduler.Backend.
//
// Backend'ы:
//   - KubeBackend    — задания Kubernetes (batch/v1 Job)
//   - QueueBackend   — очередь RabbitMQ + таблица jobs в PostgreSQL,
//     задания выполняет seqflow-worker
//   - ProcessBackend — дочерние процессы на текущей машине
//
// Каждое задание запускает "seqflow exectask <ctxfile>"; результат task
// читает ClusterScheduler из файлов task, backend сообщает только статус
// и код завершения.
package cluster
