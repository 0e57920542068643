package mq

import "errors"

var (
	// ErrNoChannel — нет открытого AMQP канала.
	ErrNoChannel = errors.New("no channel available")

	// ErrPermanent — сообщение нельзя обработать повторно.
	// Обработчик оборачивает им ошибку, чтобы сообщение ушло в DLQ.
	ErrPermanent = errors.New("permanent failure")

	errConnectionClosed = errors.New("connection closed")
)
