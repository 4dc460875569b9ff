package util

import (
	"errors"
	"math"
	"sort"
)

// ErrEmptyWeights возвращается при попытке построить карту без весов
var ErrEmptyWeights = errors.New("weighted map: набор весов пуст")

// WeightedMap неизменяемая кумулятивная функция распределения.
// Переводит непрерывный отсчёт шума в дискретный индекс за O(log n).
type WeightedMap struct {
	cdf []float64
}

// NewWeightedMap строит карту из весов.
// Отрицательные веса считаются нулевыми, полностью нулевой набор даёт
// равномерное распределение.
func NewWeightedMap(weights []float64) (*WeightedMap, error) {
	if len(weights) == 0 {
		return nil, ErrEmptyWeights
	}

	total := 0.0
	for _, w := range weights {
		if w > 0 && !math.IsInf(w, 1) {
			total += w
		}
	}

	cdf := make([]float64, len(weights))
	acc := 0.0
	for i, w := range weights {
		switch {
		case total == 0:
			w = 1
		case w < 0 || math.IsNaN(w) || math.IsInf(w, 0):
			w = 0
		}
		acc += w
		cdf[i] = acc
	}

	// Нормируем, последний элемент ровно 1
	for i := range cdf {
		cdf[i] /= acc
	}
	cdf[len(cdf)-1] = 1

	return &WeightedMap{cdf: cdf}, nil
}

// Len количество вариантов
func (m *WeightedMap) Len() int {
	return len(m.cdf)
}

// Pick выбирает индекс по отсчёту из [-1,1]; значения вне диапазона обрезаются
func (m *WeightedMap) Pick(sample float64) int {
	if math.IsNaN(sample) {
		sample = 0
	}
	return m.PickUnit((Clamp(sample, -1, 1) + 1) / 2)
}

// PickUnit выбирает индекс по отсчёту из [0,1]
func (m *WeightedMap) PickUnit(u float64) int {
	u = Clamp01(u)
	idx := sort.Search(len(m.cdf), func(i int) bool { return m.cdf[i] > u })
	if idx >= len(m.cdf) {
		// u == 1: последний вариант с ненулевым весом, хвостовые нули пропускаются
		idx = sort.Search(len(m.cdf), func(i int) bool { return m.cdf[i] >= 1 })
	}
	return idx
}

// Probability доля варианта i в распределении
func (m *WeightedMap) Probability(i int) float64 {
	if i < 0 || i >= len(m.cdf) {
		return 0
	}
	if i == 0 {
		return m.cdf[0]
	}
	return m.cdf[i] - m.cdf[i-1]
}
