package world

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/annel0/voxel-engine/internal/util"
	"github.com/annel0/voxel-engine/internal/world/block"
	"github.com/annel0/voxel-engine/internal/world/blockpos"
	"github.com/annel0/voxel-engine/internal/world/solidity"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MaterialWeight материал подземелья и его вес в распределении.
// Порядок материалов задаёт, какие полосы соседствуют друг с другом.
type MaterialWeight struct {
	ID     block.BlockID
	Weight float64
}

// GeneratorConfig параметры процедурной генерации
type GeneratorConfig struct {
	WormFrequency     float64 // Частота червоточин
	RavineFrequency   float64 // Горизонтальная частота разломов
	RavineStretch     float64 // Множитель частоты разломов по вертикали (<1 – вытянуты вверх)
	FeatureFrequency  float64 // Частота поля плотности особенностей
	FeatureLow        float64 // Ниже – особенностей нет
	FeatureHigh       float64 // Выше – особенности в полную силу
	WarpFrequency     float64 // Частота доменного искажения
	WarpAmplitude     float64 // Амплитуда искажения в единицах поля искажения
	CarveThreshold    float64 // Порог плотности вырезания
	MaterialFrequency float64 // Частота шума материалов
	Materials         []MaterialWeight
}

// DefaultGeneratorConfig возвращает настройки генерации по умолчанию
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		WormFrequency:     0.045,
		RavineFrequency:   0.012,
		RavineStretch:     0.35,
		FeatureFrequency:  0.0075,
		FeatureLow:        0.35,
		FeatureHigh:       0.65,
		WarpFrequency:     0.021,
		WarpAmplitude:     0.8,
		CarveThreshold:    0.88,
		MaterialFrequency: 0.063,
		Materials: []MaterialWeight{
			{ID: block.StoneBlockID, Weight: 10},
			{ID: block.AndesiteBlockID, Weight: 3},
			{ID: block.GraniteBlockID, Weight: 2},
			{ID: block.DioriteBlockID, Weight: 2},
			{ID: block.TuffBlockID, Weight: 1.5},
			{ID: block.DeepslateBlockID, Weight: 3},
			{ID: block.CalciteBlockID, Weight: 0.5},
		},
	}
}

// Сдвиги координат, уводящие отсчёты с целочисленной решётки шума
const (
	latticeOffsetA = 0.3183
	latticeOffsetB = 0.5772
	latticeOffsetC = 0.1415
)

// Generator четырёхэтапный генератор содержимого чанка.
// Результат зависит только от позиции чанка и сида мира.
type Generator struct {
	noise     *util.NoiseContext
	cfg       GeneratorConfig
	materials []*block.Definition
	weights   *util.WeightedMap
	tracer    trace.Tracer
}

// NewGenerator создаёт генератор. Материалы должны быть зарегистрированы
// в таблице и быть непрозрачными твёрдыми блоками.
func NewGenerator(noise *util.NoiseContext, table *block.Table, cfg GeneratorConfig) (*Generator, error) {
	if noise == nil {
		return nil, fmt.Errorf("контекст шума не задан")
	}
	if len(cfg.Materials) == 0 {
		return nil, fmt.Errorf("список материалов пуст")
	}

	materials := make([]*block.Definition, 0, len(cfg.Materials))
	weights := make([]float64, 0, len(cfg.Materials))
	for _, m := range cfg.Materials {
		def, ok := table.Get(m.ID)
		if !ok {
			return nil, fmt.Errorf("материал %d не зарегистрирован", m.ID)
		}
		if m.ID == block.AirBlockID {
			return nil, fmt.Errorf("воздух не может быть материалом покраски")
		}
		if def.Transparent() || def.Liquid {
			return nil, fmt.Errorf("материал %s (%d) должен быть непрозрачным твёрдым блоком", def.Name, def.ID)
		}
		materials = append(materials, def)
		weights = append(weights, m.Weight)
	}

	wm, err := util.NewWeightedMap(weights)
	if err != nil {
		return nil, fmt.Errorf("ошибка построения карты материалов: %w", err)
	}

	return &Generator{
		noise:     noise,
		cfg:       cfg,
		materials: materials,
		weights:   wm,
		tracer:    otel.Tracer("voxel-engine/world"),
	}, nil
}

// Seed возвращает сид мира генератора
func (g *Generator) Seed() uint32 {
	return g.noise.Seed()
}

// Generate заполняет чанк: вырезание, морфологическая очистка, покраска
// материалами и построение сетки прозрачности. Отмена контекста между
// этапами прерывает генерацию; чанк в этом случае надо выбросить.
func (g *Generator) Generate(ctx context.Context, c *Chunk) error {
	ctx, span := g.tracer.Start(ctx, "world.Generate", trace.WithAttributes(
		attribute.Int("chunk.x", c.pos.X),
		attribute.Int("chunk.y", c.pos.Y),
		attribute.Int("chunk.z", c.pos.Z),
	))
	defer span.End()

	start := time.Now()
	stages := []struct {
		name string
		run  func(*Chunk)
	}{
		{"carve", g.carve},
		{"fill_pockets", fillPockets},
		{"clear_spurs", clearSpurs},
		{"paint", g.paint},
		{"transparency", (*Chunk).BuildTransparency},
	}

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			return fmt.Errorf("%s: этап %s: %w: %v", c.pos, stage.name, ErrGenerationAborted, err)
		}
		stage.run(c)
	}

	c.needsRemesh = true
	worldLogger().Trace("🌱 %s сгенерирован за %v (твёрдых блоков: %d)", c.pos, time.Since(start), c.SolidCount())
	return nil
}

// carve начинает с полностью твёрдого чанка и вырезает червоточины и разломы
func (g *Generator) carve(c *Chunk) {
	origin := c.pos.Origin()
	stone := g.materials[0]

	for i := range c.positions {
		x, y, z := blockpos.Unpack(blockpos.FromIndex(i))
		c.setDefinition(i, stone)

		density := g.carveDensity(float64(origin.X+x), float64(origin.Y+y), float64(origin.Z+z))
		if density > g.cfg.CarveThreshold {
			c.positions[i] = blockpos.FlagSet(c.positions[i], blockpos.FlagAir)
			c.defs[i] = c.table.Air()
		}
	}
}

// carveDensity плотность вырезания в мировой точке: max(червоточина, разлом),
// ослабленный воротами поля особенностей
func (g *Generator) carveDensity(wx, wy, wz float64) float64 {
	cfg := &g.cfg

	ff := cfg.FeatureFrequency
	gate := util.Smoothstep(cfg.FeatureLow, cfg.FeatureHigh,
		g.noise.Feature(wx*ff+latticeOffsetA, wy*ff+latticeOffsetB, wz*ff+latticeOffsetC))
	if gate == 0 {
		return 0
	}

	// Доменное искажение в пространстве поля искажения, затем обратно в блоки
	wf := cfg.WarpFrequency
	sx, sy, sz := g.noise.Warp(wx*wf+latticeOffsetB, wy*wf+latticeOffsetC, wz*wf+latticeOffsetA, cfg.WarpAmplitude)
	px, py, pz := sx/wf, sy/wf, sz/wf

	worm := g.noise.Worm(px*cfg.WormFrequency+latticeOffsetC, py*cfg.WormFrequency+latticeOffsetA, pz*cfg.WormFrequency+latticeOffsetB)

	rf := cfg.RavineFrequency
	ravine := g.noise.Ravine(px*rf+latticeOffsetA, py*rf*cfg.RavineStretch+latticeOffsetC, pz*rf+latticeOffsetB)

	return math.Max(worm, ravine) * gate
}

// fillPockets заполняет одиночные пустоты, все шесть соседей которых твёрдые.
// Ореол считается воздухом, поэтому граничные клетки не трогаются.
func fillPockets(c *Chunk) {
	solidity.Fill(&c.solidity, solidity.Empty)
	solidity.Build(&c.solidity, c.positions[:])

	fill := c.defs[firstSolid(c)]
	for i, p := range c.positions {
		if blockpos.IsSolid(p) {
			continue
		}
		x, y, z := blockpos.Unpack(p)
		if solidity.NeighborsAllSolid(&c.solidity, solidity.HaloIndex(x, y, z)) {
			c.setDefinition(i, fill)
		}
	}
}

// clearSpurs убирает одиночные висящие блоки без твёрдых соседей.
// Ореол считается твёрдым, поэтому граничные клетки не трогаются.
func clearSpurs(c *Chunk) {
	solidity.Fill(&c.solidity, solidity.Solid)
	solidity.Build(&c.solidity, c.positions[:])

	air := c.table.Air()
	for i, p := range c.positions {
		if !blockpos.IsSolid(p) {
			continue
		}
		x, y, z := blockpos.Unpack(p)
		if solidity.NeighborsNoSolid(&c.solidity, solidity.HaloIndex(x, y, z)) {
			c.setDefinition(i, air)
		}
	}

	// Итоговая сетка занятости – чистая функция флагов
	solidity.Fill(&c.solidity, solidity.Empty)
	solidity.Build(&c.solidity, c.positions[:])
}

// firstSolid индекс любого твёрдого блока; если таких нет – 0
func firstSolid(c *Chunk) int {
	for i, p := range c.positions {
		if blockpos.IsSolid(p) {
			return i
		}
	}
	return 0
}

// paint выбирает материал каждого твёрдого блока по шуму материалов
func (g *Generator) paint(c *Chunk) {
	origin := c.pos.Origin()
	mf := g.cfg.MaterialFrequency

	for i, p := range c.positions {
		if !blockpos.IsSolid(p) {
			continue
		}
		x, y, z := blockpos.Unpack(p)
		sample := g.noise.Material(
			float64(origin.X+x)*mf+latticeOffsetB,
			float64(origin.Y+y)*mf+latticeOffsetA,
			float64(origin.Z+z)*mf+latticeOffsetC,
		)
		c.setDefinition(i, g.materials[g.weights.Pick(sample)])
	}
}
