// Package cli реализует инструмент командной строки seqflow.
//
// # Команды
//
//   - exec <workflow> [--design file] — выполнить workflow
//   - exectask <ctxfile> — выполнить один task из файла контекста
//     (запускается заданиями кластера)
//   - graph <workflow> — вывести граф шагов в формате Graphviz
//   - plan <workflow> [--json] — вывести порядок выполнения шагов
//
// Глобальные флаги (-j, -w, --loglevel, --config, --scheduler и другие)
// регистрируются config.Settings.AddFlags и дополняются файлом
// seqflow.yaml и переменными SEQFLOW_* перед выполнением команды.
//
// # Вывод
//
// Output форматирует данные таблицей (text/tabwriter) или JSON (--json).
// Данные выводятся в stdout, сообщения — в stderr, логи — в stderr
// через slog. Это позволяет использовать pipe:
//
//	seqflow plan workflow.yaml --json | jq '.[].id'
//	seqflow graph workflow.yaml | dot -Tpng > workflow.png
package cli
