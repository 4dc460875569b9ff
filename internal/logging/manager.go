package logging

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
)

// ComponentLevels уровни одного компонента, переопределяющие общие
type ComponentLevels struct {
	Console LogLevel
	File    LogLevel
}

// LoggerManager раздаёт логгеры по компонентам (world, storage, http, events).
// Переопределения уровней можно задать до создания логгера: они применятся
// при первом обращении к компоненту.
type LoggerManager struct {
	mu        sync.Mutex
	loggers   map[string]*Logger
	overrides map[string]ComponentLevels
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

func newLoggerManager() *LoggerManager {
	return &LoggerManager{
		loggers:   make(map[string]*Logger),
		overrides: make(map[string]ComponentLevels),
	}
}

// GetLoggerManager возвращает процессный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() { globalManager = newLoggerManager() })
	return globalManager
}

// GetLogger возвращает логгер компонента, создавая его при первом обращении
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if logger, ok := lm.loggers[component]; ok {
		return logger, nil
	}

	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("логгер %s: %w", component, err)
	}
	if lv, ok := lm.overrides[component]; ok {
		logger.SetLevels(lv.Console, lv.File)
	}
	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger как GetLogger, но при ошибке (нет доступа к каталогу логов)
// возвращает консольный логгер
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err != nil {
		defaultLogger.Warn("⚠️ Логгер %s недоступен, пишем в консоль: %v", component, err)
		return newConsoleLogger(component, os.Stdout)
	}
	return logger
}

// SetComponentLevels задаёт уровни компонента. Уже созданный логгер
// перестраивается сразу, будущий получит их при создании.
func (lm *LoggerManager) SetComponentLevels(component string, levels ComponentLevels) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.overrides[component] = levels
	if logger, ok := lm.loggers[component]; ok {
		logger.SetLevels(levels.Console, levels.File)
	}
}

// ApplyLevels разбирает уровни из конфигурации: компонент → имя уровня.
// Один уровень задаётся и консоли, и файлу.
func (lm *LoggerManager) ApplyLevels(levels map[string]string) error {
	for component, name := range levels {
		level, err := ParseLevel(name)
		if err != nil {
			return fmt.Errorf("уровень компонента %s: %w", component, err)
		}
		lm.SetComponentLevels(component, ComponentLevels{Console: level, File: level})
	}
	return nil
}

// Components имена созданных логгеров по алфавиту
func (lm *LoggerManager) Components() []string {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	sort.Strings(components)
	return components
}

// CloseAll закрывает файлы всех логгеров и забывает их
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("логгер %s: %w", component, err))
		}
	}
	lm.loggers = make(map[string]*Logger)
	return errors.Join(errs...)
}

// GetComponentLogger логгер компонента из процессного менеджера
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetWorldLogger() *Logger {
	return GetComponentLogger("world")
}

func GetStorageLogger() *Logger {
	return GetComponentLogger("storage")
}
