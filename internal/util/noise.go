package util

import (
	"math"

	"github.com/aquilax/go-perlin"
)

// Параметры шума Перлина, общие для всех полей
const (
	noiseAlpha   = 2.0 // Сглаживание шума
	noiseBeta    = 2.0 // Частота шума
	noiseOctaves = 3   // Количество октав
)

// Соли для вывода независимых сидов каждого поля из сида мира
const (
	saltWorm uint64 = iota + 1
	saltRavine
	saltFeature
	saltWarpX
	saltWarpY
	saltWarpZ
	saltMaterial
)

// NoiseContext набор когерентных полей шума, построенный из сида мира.
// Создаётся один раз и передаётся в генерацию явно; после создания
// только читается, поэтому безопасен для параллельной генерации.
type NoiseContext struct {
	seed uint32

	worm     *perlin.Perlin
	ravine   *perlin.Perlin
	feature  *perlin.Perlin
	warp     [3]*perlin.Perlin
	material *perlin.Perlin
}

// NewNoiseContext инициализирует все поля шума для указанного сида мира
func NewNoiseContext(seed uint32) *NoiseContext {
	field := func(salt uint64) *perlin.Perlin {
		return perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, deriveSeed(seed, salt))
	}

	return &NoiseContext{
		seed:     seed,
		worm:     field(saltWorm),
		ravine:   field(saltRavine),
		feature:  field(saltFeature),
		warp:     [3]*perlin.Perlin{field(saltWarpX), field(saltWarpY), field(saltWarpZ)},
		material: field(saltMaterial),
	}
}

// Seed возвращает сид мира
func (n *NoiseContext) Seed() uint32 {
	return n.seed
}

// Warp смещает координаты доменным искажением амплитуды amp
func (n *NoiseContext) Warp(x, y, z, amp float64) (float64, float64, float64) {
	return x + amp*n.warp[0].Noise3D(x, y, z),
		y + amp*n.warp[1].Noise3D(x, y, z),
		z + amp*n.warp[2].Noise3D(x, y, z)
}

// Worm гребневый шум для червоточин: максимален (≈1) вдоль нулевой
// поверхности поля и убывает к 0 вдали от неё
func (n *NoiseContext) Worm(x, y, z float64) float64 {
	return Clamp01(1 - math.Abs(n.worm.Noise3D(x, y, z))*2)
}

// Ravine гребневый шум для огромных разломов, того же вида что Worm
func (n *NoiseContext) Ravine(x, y, z float64) float64 {
	return Clamp01(1 - math.Abs(n.ravine.Noise3D(x, y, z))*2)
}

// Feature низкочастотная плотность особенностей в диапазоне [0,1]
func (n *NoiseContext) Feature(x, y, z float64) float64 {
	return Clamp01((n.feature.Noise3D(x, y, z) + 1) / 2)
}

// Material шум для выбора материала в диапазоне [-1,1]
func (n *NoiseContext) Material(x, y, z float64) float64 {
	return Clamp(n.material.Noise3D(x, y, z), -1, 1)
}

// Clamp ограничивает v диапазоном [lo,hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 ограничивает v диапазоном [0,1]
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Smoothstep эрмитова интерполяция между edge0 и edge1
func Smoothstep(edge0, edge1, v float64) float64 {
	if edge0 == edge1 {
		if v < edge0 {
			return 0
		}
		return 1
	}
	t := Clamp01((v - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
}

// deriveSeed перемешивает сид мира с солью (splitmix64)
func deriveSeed(seed uint32, salt uint64) int64 {
	z := uint64(seed) + salt*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	z ^= z >> 31
	return int64(z)
}
