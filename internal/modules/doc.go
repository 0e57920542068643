// Package modules содержит реализации шагов workflow.
//
// Модуль объявляет порты и требования (для построения графа) и выполняет
// task (для планировщика). Каждый шаг получает свой экземпляр модуля из
// Registry:
//
//	registry := modules.DefaultRegistry()
//	m, err := registry.Get("shell")
//
// Встроенные модули:
//   - copyinput            — адаптер входа (копирование со сменой сжатия)
//   - copyoutput           — копирование результатов в выходной каталог
//   - requirementinstaller — установка внешнего требования
//   - shell                — произвольная shell-команда
//   - genomedescgenerator  — генератор описания генома
//
// Модули не повторяют выполнение: ошибка Execute становится неуспешным
// результатом task.
package modules
