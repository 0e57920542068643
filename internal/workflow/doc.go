// Package workflow выполняет разрешённый граф шагов.
//
// Executor строит план (engine.Plan), сохраняет каталог запуска и
// передаёт готовые шаги планировщику task:
//
//	exec, err := workflow.New(workflow.Config{
//	    Workflow: w,
//	    Spec:     spec,
//	    Storage:  storageRegistry,
//	    NewScheduler: func(onResult scheduler.ResultHandler) (scheduler.TaskScheduler, error) {
//	        return scheduler.NewLocal(scheduler.LocalConfig{Runner: runner, OnResult: onResult}), nil
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	err = exec.Run(ctx)
//
// # Каталог запуска
//
//	<jobdir>/workflow.yaml   копия описания workflow
//	<jobdir>/workflow.dot    граф в формате Graphviz
//	<jobdir>/tasks/          файлы task (.ctx, .data, .done, .result)
//	<jobdir>/work/<prefix>/  рабочий каталог task
//	<parent>/seqflow-latest  ссылка на последний запуск
//
// # Шаги и task
//
// Инфраструктурные шаги (ROOT, DESIGN, CHECKER, FIRST) завершаются сразу;
// выходы DESIGN — данные design. Пропущенный шаг завершается сразу с
// ожидаемыми выходами. Остальные шаги создают по task на образец; GENERATOR,
// установщики требований и модули с SingleTask — один task на шаг.
//
// Шаг завершается, когда отчитались все его task. Неуспех любого task
// останавливает планировщик и завершает Run с ErrStepFailed.
package workflow
