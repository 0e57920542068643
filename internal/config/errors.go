package config

import "errors"

var (
	// ErrConfigFile — файл конфигурации не прочитан.
	ErrConfigFile = errors.New("config file")

	// ErrInvalidValue — недопустимое значение настройки.
	ErrInvalidValue = errors.New("invalid config value")

	// ErrUnknownScheduler — неизвестный тип планировщика.
	ErrUnknownScheduler = errors.New("unknown scheduler")
)
