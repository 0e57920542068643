// Package storage реализует протоколы хранения данных.
//
// Location — строка вида "/data/x.fq", "file:///data/x.fq" или
// "s3://bucket/key". Схема location определяет протокол:
//
//   - file — локальная файловая система (поддерживает symlink)
//   - s3 — S3-совместимое хранилище (symlink не поддерживается)
//
// Движку от протокола нужны только exists/open/create/symlink. Сравнение
// протоколов (Scheme) используется при решении, нужен ли шаг-адаптер.
//
// Пакет также содержит кодеки сжатия (gzip, bzip2), которые применяет
// модуль копирования данных.
package storage
