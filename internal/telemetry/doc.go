// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики планировщиков и worker'а
//
// Метрики экспортируются на /metrics endpoint worker'а и команды exec.
package telemetry
