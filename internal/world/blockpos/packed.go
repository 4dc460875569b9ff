// Package blockpos упаковывает локальные координаты блока внутри чанка 16³
// и его флаги состояния в одно 16-битное значение.
//
// Раскладка битов:
//
//	0..3   – локальный Z
//	4..7   – локальный Y
//	8..11  – локальный X
//	12..15 – флаги (AIR, LIQUID, два резервных)
//
// Младшие 12 бит совпадают с линейным индексом блока в массиве чанка:
// index = x·256 + y·16 + z. Все функции чистые и не могут завершиться ошибкой.
package blockpos

// AxisLength длина ребра чанка в блоках
const AxisLength = 16

// Capacity количество блоков в чанке
const Capacity = AxisLength * AxisLength * AxisLength

const (
	axisMask  = 0xF
	indexMask = 0x0FFF
	flagShift = 12

	shiftY = 4
	shiftX = 8
)

// Packed упакованная позиция блока вместе с флагами
type Packed uint16

// Flag номер бита флага (0..3); реальный бит в значении – 12+Flag
type Flag uint8

const (
	FlagAir       Flag = iota // блок не занят
	FlagLiquid                // блок содержит жидкость
	FlagReserved2             // зарезервирован
	FlagReserved3             // зарезервирован
)

// PackLocal упаковывает локальные координаты без флагов.
// Значения вне [0,16) молча обрезаются маской.
func PackLocal(x, y, z int) Packed {
	return Packed((x&axisMask)<<shiftX | (y&axisMask)<<shiftY | z&axisMask)
}

// PackWithFlags упаковывает координаты и полубайт флагов
func PackWithFlags(x, y, z int, flags uint8) Packed {
	return PackLocal(x, y, z) | Packed(flags&axisMask)<<flagShift
}

// Unpack возвращает локальные координаты
func Unpack(p Packed) (x, y, z int) {
	x = int(p>>shiftX) & axisMask
	y = int(p>>shiftY) & axisMask
	z = int(p) & axisMask
	return
}

// Index возвращает линейный индекс блока (флаги отбрасываются)
func Index(p Packed) uint16 {
	return uint16(p) & indexMask
}

// FromIndex строит позицию по линейному индексу
func FromIndex(i int) Packed {
	return Packed(i & indexMask)
}

// Flags возвращает полубайт флагов
func Flags(p Packed) uint8 {
	return uint8(p >> flagShift)
}

// FlagGet проверяет флаг
func FlagGet(p Packed, f Flag) bool {
	return p&flagBit(f) != 0
}

// FlagSet возвращает значение с установленным флагом
func FlagSet(p Packed, f Flag) Packed {
	return p | flagBit(f)
}

// FlagClear возвращает значение со сброшенным флагом
func FlagClear(p Packed, f Flag) Packed {
	return p &^ flagBit(f)
}

// IsSolid – единственный источник истины о занятости позиции.
// Используется и генератором, и построением мешей.
func IsSolid(p Packed) bool {
	return !FlagGet(p, FlagAir)
}

func flagBit(f Flag) Packed {
	return 1 << (flagShift + (f & 0x3))
}
