package modules

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/engine"
	"github.com/shaiso/Seqflow/internal/storage"
)

// Параметры шага-установщика.
const (
	ParamRequirement    = "requirement"
	ParamInstallCommand = "install.command"
	ParamOptional       = "optional"
)

// ExecutableRequirement — требование наличия программы в PATH.
type ExecutableRequirement struct {
	// Program — имя программы.
	Program string

	// InstallCommand — shell-команда установки. Пусто — не устанавливается.
	InstallCommand string

	// Optional — шаг может работать без программы.
	Optional bool

	// lookPath подменяется в тестах.
	lookPath func(string) (string, error)
}

// NewExecutableRequirement создаёт требование программы.
func NewExecutableRequirement(program, installCommand string, optional bool) *ExecutableRequirement {
	return &ExecutableRequirement{
		Program:        program,
		InstallCommand: installCommand,
		Optional:       optional,
		lookPath:       exec.LookPath,
	}
}

// Name возвращает имя программы.
func (r *ExecutableRequirement) Name() string {
	return r.Program
}

// IsAvailable проверяет, что программа есть в PATH.
func (r *ExecutableRequirement) IsAvailable() bool {
	lookPath := r.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	_, err := lookPath(r.Program)
	return err == nil
}

// IsInstallable возвращает true, если задана команда установки.
func (r *ExecutableRequirement) IsInstallable() bool {
	return r.InstallCommand != ""
}

// IsOptional возвращает true для необязательной программы.
func (r *ExecutableRequirement) IsOptional() bool {
	return r.Optional
}

// Parameters возвращает параметры шага-установщика.
func (r *ExecutableRequirement) Parameters() []domain.Parameter {
	return []domain.Parameter{
		{Name: ParamInstallCommand, Value: r.InstallCommand},
		{Name: ParamOptional, Value: strconv.FormatBool(r.Optional)},
		{Name: ParamRequirement, Value: r.Program},
	}
}

// RequirementInstaller — шаг установки внешнего требования.
//
// Выполняет install.command через sh -c в рабочем каталоге task.
type RequirementInstaller struct {
	base
	requirement string
	command     string
	optional    bool
}

// NewRequirementInstaller создаёт модуль requirementinstaller.
func NewRequirementInstaller() *RequirementInstaller {
	return &RequirementInstaller{base: base{name: engine.RequirementInstallerModule}}
}

// SingleTask — установка выполняется один раз на шаг.
func (m *RequirementInstaller) SingleTask() bool {
	return true
}

// Configure читает параметры.
func (m *RequirementInstaller) Configure(params []domain.Parameter) error {
	pm, err := paramMap(m.name, params, ParamRequirement, ParamInstallCommand, ParamOptional)
	if err != nil {
		return err
	}

	m.requirement = pm[ParamRequirement]
	if m.requirement == "" {
		return invalidParameter(m.name, ParamRequirement, "requirement is required")
	}
	m.command = strings.TrimSpace(pm[ParamInstallCommand])
	if m.command == "" {
		return invalidParameter(m.name, ParamInstallCommand, "install command is required")
	}
	if v := pm[ParamOptional]; v != "" {
		if m.optional, err = strconv.ParseBool(v); err != nil {
			return invalidParameter(m.name, ParamOptional, err.Error())
		}
	}
	return nil
}

// Execute запускает команду установки.
func (m *RequirementInstaller) Execute(ctx context.Context, task *Task) (*Result, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	dir, err := storage.LocalPath(task.Context.WorkDir)
	if err != nil {
		return nil, err
	}

	task.Logger.Info("install requirement", "requirement", m.requirement, "command", m.command)

	cmd := exec.CommandContext(ctx, "sh", "-c", m.command)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		if m.optional {
			task.Logger.Warn("optional requirement installation failed",
				"requirement", m.requirement, "error", err)
			return NewResult(fmt.Sprintf("%s not installed", m.requirement)), nil
		}
		return nil, fmt.Errorf("install %s: %w: %s", m.requirement, err, tail(out, 2048))
	}

	return NewResult(fmt.Sprintf("%s installed", m.requirement)), nil
}

// tail возвращает последние n байт вывода.
func tail(out []byte, n int) string {
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return strings.TrimSpace(string(out))
}
