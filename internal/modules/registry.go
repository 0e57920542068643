package modules

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/Seqflow/internal/engine"
)

// Registry — реестр модулей.
//
// Хранит фабрики модулей по имени и создаёт новый экземпляр на каждый
// шаг. Потокобезопасен. Реализует engine.ModuleProvider.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// DefaultRegistry создаёт реестр со всеми встроенными модулями.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(engine.CopyInputModule, func() Module { return NewCopyInput() })
	r.Register(engine.CopyOutputModule, func() Module { return NewCopyOutput() })
	r.Register(engine.RequirementInstallerModule, func() Module { return NewRequirementInstaller() })
	r.Register(ShellModule, func() Module { return NewShell() })
	r.Register(GenomeDescGeneratorModule, func() Module { return NewGenomeDescGenerator() })

	return r
}

// Register регистрирует фабрику модуля.
// Если модуль с таким именем уже существует, он будет перезаписан.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get создаёт экземпляр модуля по имени.
// Возвращает ErrModuleNotFound, если модуль не найден.
func (r *Registry) Get(name string) (Module, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	return factory(), nil
}

// GetVersion создаёт экземпляр модуля и проверяет версию.
// Пустая version — любая версия.
func (r *Registry) GetVersion(name, version string) (Module, error) {
	m, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if version != "" && m.Version() != version {
		return nil, fmt.Errorf("%w: %s requires %s, registered %s",
			ErrVersionMismatch, name, version, m.Version())
	}
	return m, nil
}

// NewModule создаёт модуль для шага. Реализует engine.ModuleProvider.
func (r *Registry) NewModule(name, version string) (engine.Module, error) {
	return r.GetVersion(name, version)
}

// Has проверяет, зарегистрирован ли модуль.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[name]
	return exists
}

// Names возвращает отсортированный список имён модулей.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister удаляет модуль из реестра.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, name)
}
