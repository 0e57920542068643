// Seqflow — выполнение workflow обработки данных секвенирования.
//
// Использование:
//
//	seqflow [global flags] <command> [flags]
//
// Команды:
//
//	exec      Выполнить workflow
//	exectask  Выполнить один task из файла контекста
//	graph     Вывести граф шагов в формате Graphviz
//	plan      Вывести порядок выполнения шагов
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/Seqflow/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	// graceful shutdown: отмена останавливает планировщик и задания
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cli.NewRootCmd(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
