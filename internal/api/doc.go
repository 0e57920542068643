// Package api содержит HTTP API состояния.
//
// Структура:
//   - handler.go     — Handler с источниками данных (запуск, таблица заданий)
//   - routes.go      — регистрация маршрутов
//   - middleware.go  — middleware (logging, recovery)
//   - response.go    — унифицированные JSON-ответы и обработка ошибок
//   - dto.go         — ответы API
//   - run_handler.go — состояние выполняемого workflow (seqflow exec)
//   - job_handler.go — задания очереди (seqflow-worker)
//
// Маршруты регистрируются только для заданных источников:
//
//	GET  /healthz
//	GET  /api/v1/run
//	GET  /api/v1/run/steps
//	GET  /api/v1/jobs/{id}
//	POST /api/v1/jobs/{id}/cancel
package api
