package cli

import "errors"

var (
	// ErrTaskFailed — task, выполненный exectask, завершился неуспешно.
	ErrTaskFailed = errors.New("task failed")
)
