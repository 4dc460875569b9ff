// Package implementations регистрирует описания всех типов блоков.
// Пакет импортируется ради побочного эффекта до первого вызова block.Default().
package implementations

import "github.com/annel0/voxel-engine/internal/world/block"

// Регистрируем все типы блоков при импорте пакета
func init() {
	// Базовые блоки
	block.Register(Air())
	block.Register(Water())
	block.Register(Glass())

	// Почва
	for _, def := range Soil() {
		block.Register(def)
	}

	// Каменные породы
	for _, def := range StoneFamily() {
		block.Register(def)
	}
}
