// Package engine строит граф workflow и разрешает зависимости между шагами.
//
// Включает:
//   - workflow.go — список шагов, инфраструктурные шаги, конфигурация
//   - resolver.go — связывание входных портов с выходными
//   - adapters.go — шаги копирования входов и результатов, установщики
//   - compat.go   — проверка совместимости портов
//   - plan.go     — план выполнения (топологический порядок)
//   - template.go — рендеринг параметров ({{ .Globals.x }})
//   - graphviz.go — экспорт графа в DOT
//
// Engine не выполняет шаги: он отвечает только за структуру графа и
// порядок выполнения.
package engine
