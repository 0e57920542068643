// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Очередь используется backend'ом кластера queue: планировщик записывает
// задание в БД и публикует job.submitted, seqflow-worker потребляет
// сообщения и выполняет задания.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect с backoff, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений
//   - consumer.go   — потребление сообщений
//
// Exchanges:
//   - seqflow.jobs — задания кластера
//   - seqflow.dlq  — dead letter queue
package mq
