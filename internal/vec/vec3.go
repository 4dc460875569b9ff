package vec

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Vec3 представляет трехмерный вектор с целочисленными координатами
type Vec3 struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Vec3Float представляет трехмерный вектор с плавающими координатами
type Vec3Float struct {
	X float64
	Y float64
	Z float64
}

// DistanceSq возвращает квадрат расстояния до другого вектора
func (v Vec3) DistanceSq(other Vec3) int {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return dx*dx + dy*dy + dz*dz
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Scale умножает каждую компоненту на скаляр
func (v Vec3) Scale(k int) Vec3 {
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// FloorDiv делит каждую компоненту с округлением вниз (корректно для отрицательных координат)
func (v Vec3) FloorDiv(d int) Vec3 {
	return Vec3{X: FloorDiv(v.X, d), Y: FloorDiv(v.Y, d), Z: FloorDiv(v.Z, d)}
}

// FloorMod возвращает неотрицательный остаток по каждой компоненте
func (v Vec3) FloorMod(d int) Vec3 {
	return Vec3{X: FloorMod(v.X, d), Y: FloorMod(v.Y, d), Z: FloorMod(v.Z, d)}
}

// ToFloat преобразует вектор в вещественный
func (v Vec3) ToFloat() Vec3Float {
	return Vec3Float{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

// Mgl возвращает вектор в формате mathgl для передачи рендеру
func (v Vec3) Mgl() mgl32.Vec3 {
	return mgl32.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z)
}

// FloorDiv выполняет целочисленное деление с округлением к минус бесконечности.
// В отличие от оператора /, FloorDiv(-1, 16) == -1.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// FloorMod возвращает остаток, согласованный с FloorDiv (всегда в [0, b) при b > 0)
func FloorMod(a, b int) int {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}
