// Package config загружает настройки Seqflow.
//
// # Источники
//
// Настройки собираются из четырёх источников, по убыванию приоритета:
//  1. Флаги командной строки
//  2. Переменные окружения SEQFLOW_*
//  3. Файл конфигурации (seqflow.yaml)
//  4. Значения по умолчанию
//
// Источником истины служит набор флагов: каждое поле Settings
// регистрируется как флаг в AddFlags, а окружение и файл заполняют
// флаги, не заданные явно. Имя флага "kube-namespace" соответствует
// переменной SEQFLOW_KUBE_NAMESPACE и ключу файла "kube.namespace".
//
//	settings := config.Default()
//	settings.AddFlags(cmd.PersistentFlags())
//	...
//	if err := config.Load(cmd.Flags(), configFile, logger); err != nil {
//		return err
//	}
//
// Settings передаётся компонентам явно, глобального состояния нет.
package config
