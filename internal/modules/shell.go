package modules

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"text/template"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/engine"
	"github.com/shaiso/Seqflow/internal/storage"
)

// ShellModule — имя модуля shell.
const ShellModule = "shell"

// Параметры модуля shell.
const (
	ParamCommand  = "command"
	ParamInputs   = "inputs"
	ParamOutputs  = "outputs"
	ParamRequires = "requires"
	ParamInstall  = "install"
	ParamTerminal = "terminal"
	ParamSingle   = "single"
)

// Shell — шаг, выполняющий shell-команду.
//
// Порты объявляются параметрами через пробел, поля через двоеточие:
//
//	inputs:  "reads:reads_fastq:GZIP,NONE genome:genome_fasta"
//	outputs: "mapping:mapper_results_sam:NONE"
//
// Для входа третье поле — допустимые сжатия, для выхода — сжатие.
// Команда — Go template с разделителями [[ ]] и доступом к файлам task:
//
//	command: "bwa mem [[ .Input \"genome\" ]] [[ .Input \"reads\" ]] > [[ .Output \"mapping\" ]]"
//
// Разделители {{ }} заняты параметрами шага, которые рендерятся
// при построении графа.
//
// Команда выполняется через sh -c в рабочем каталоге task. Поддерживаются
// только локальные данные.
type Shell struct {
	base
	command  *template.Template
	reqs     []domain.Requirement
	terminal bool
	single   bool
}

// NewShell создаёт модуль shell.
func NewShell() *Shell {
	return &Shell{base: base{name: ShellModule}}
}

// Configure разбирает порты, требования и шаблон команды.
func (m *Shell) Configure(params []domain.Parameter) error {
	pm, err := paramMap(m.name, params,
		ParamCommand, ParamInputs, ParamOutputs, ParamRequires, ParamInstall, ParamTerminal, ParamSingle)
	if err != nil {
		return err
	}

	command := strings.TrimSpace(pm[ParamCommand])
	if command == "" {
		return invalidParameter(m.name, ParamCommand, "command is required")
	}
	m.command, err = template.New(m.name).Delims("[[", "]]").Option("missingkey=error").Parse(command)
	if err != nil {
		return invalidParameter(m.name, ParamCommand, err.Error())
	}

	if m.inputs, err = parsePorts(pm[ParamInputs], true); err != nil {
		return invalidParameter(m.name, ParamInputs, err.Error())
	}
	if m.outputs, err = parsePorts(pm[ParamOutputs], false); err != nil {
		return invalidParameter(m.name, ParamOutputs, err.Error())
	}

	for _, program := range strings.Fields(strings.ReplaceAll(pm[ParamRequires], ",", " ")) {
		m.reqs = append(m.reqs, NewExecutableRequirement(program, pm[ParamInstall], false))
	}

	if v := pm[ParamTerminal]; v != "" {
		if m.terminal, err = strconv.ParseBool(v); err != nil {
			return invalidParameter(m.name, ParamTerminal, err.Error())
		}
	}
	if v := pm[ParamSingle]; v != "" {
		if m.single, err = strconv.ParseBool(v); err != nil {
			return invalidParameter(m.name, ParamSingle, err.Error())
		}
	}
	return nil
}

// Requirements возвращает программы из параметра requires.
func (m *Shell) Requirements() []domain.Requirement {
	return m.reqs
}

// Terminal возвращает значение параметра terminal.
func (m *Shell) Terminal() bool {
	return m.terminal
}

// SingleTask возвращает значение параметра single.
func (m *Shell) SingleTask() bool {
	return m.single
}

// Execute рендерит и выполняет команду.
func (m *Shell) Execute(ctx context.Context, task *Task) (*Result, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	data, err := newShellData(task)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := m.command.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render command: %w", err)
	}
	command := buf.String()

	task.Logger.Info("run command", "command", command, "work_dir", data.WorkDir)

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = data.WorkDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrTaskCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("command failed: %w: %s", err, tail(out, 2048))
	}

	result := NewResult(command)
	result.Counters["output_bytes"] = int64(len(out))
	return result, nil
}

// shellData — данные для шаблона команды.
type shellData struct {
	Sample  string
	WorkDir string
	Params  map[string]string

	inputs  map[string][]string
	outputs map[string][]string
}

func newShellData(task *Task) (*shellData, error) {
	workDir, err := storage.LocalPath(task.Context.WorkDir)
	if err != nil {
		return nil, err
	}

	d := &shellData{
		Sample:  task.Context.Sample,
		WorkDir: workDir,
		Params:  domain.ParametersToMap(task.Context.Parameters),
		inputs:  make(map[string][]string),
		outputs: make(map[string][]string),
	}

	collect := func(dst map[string][]string, refs map[string][]domain.DataRef) error {
		for port, list := range refs {
			for _, ref := range list {
				for _, f := range ref.Files {
					p, err := storage.LocalPath(f)
					if err != nil {
						return err
					}
					dst[port] = append(dst[port], p)
				}
			}
		}
		return nil
	}
	if err := collect(d.inputs, task.Context.Inputs); err != nil {
		return nil, err
	}
	if err := collect(d.outputs, task.Context.Outputs); err != nil {
		return nil, err
	}
	return d, nil
}

// Input возвращает первый файл входа.
func (d *shellData) Input(port string) (string, error) {
	files := d.inputs[port]
	if len(files) == 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingInput, port)
	}
	return files[0], nil
}

// Inputs возвращает все файлы входа через пробел.
func (d *shellData) Inputs(port string) string {
	return strings.Join(d.inputs[port], " ")
}

// Output возвращает первый файл выхода.
func (d *shellData) Output(port string) (string, error) {
	files := d.outputs[port]
	if len(files) == 0 {
		return "", fmt.Errorf("no output files for port %s", port)
	}
	return files[0], nil
}

// Outputs возвращает все файлы выхода через пробел.
func (d *shellData) Outputs(port string) string {
	return strings.Join(d.outputs[port], " ")
}

// parsePorts разбирает объявление портов "name:format[:compression]".
func parsePorts(s string, input bool) ([]engine.PortSpec, error) {
	fields := strings.Fields(s)
	ports := make([]engine.PortSpec, 0, len(fields))
	seen := make(map[string]bool, len(fields))

	for _, f := range fields {
		parts := strings.Split(f, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid port declaration %q, expected name:format[:compression]", f)
		}
		if seen[parts[0]] {
			return nil, fmt.Errorf("duplicate port %q", parts[0])
		}
		seen[parts[0]] = true

		port := engine.PortSpec{Name: parts[0], Format: parts[1], Compression: domain.CompressionNone}
		if len(parts) == 3 {
			if input {
				set, err := domain.ParseCompressionSet(parts[2])
				if err != nil {
					return nil, err
				}
				port.Compressions = set
			} else {
				c, err := domain.ParseCompression(parts[2])
				if err != nil {
					return nil, err
				}
				port.Compression = c
			}
		}
		ports = append(ports, port)
	}
	return ports, nil
}
