package world

import (
	"os"
	"testing"

	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/world/block"
	_ "github.com/annel0/voxel-engine/internal/world/block/implementations"
)

func TestMain(m *testing.M) {
	// Без файлов логов в каталоге пакета
	logging.Configure("", logging.WARN, logging.WARN)
	os.Exit(m.Run())
}

func testTable() *block.Table {
	return block.Default()
}

// flatStoneConfig конфигурация, при которой ничего не вырезается
func flatStoneConfig() GeneratorConfig {
	cfg := DefaultGeneratorConfig()
	cfg.CarveThreshold = 2
	cfg.Materials = []MaterialWeight{{ID: block.StoneBlockID, Weight: 1}}
	return cfg
}

// cavernousConfig конфигурация, при которой пустоты есть почти везде:
// ворота особенностей всегда открыты, порог вырезания снижен
func cavernousConfig() GeneratorConfig {
	cfg := DefaultGeneratorConfig()
	cfg.FeatureLow = 0
	cfg.FeatureHigh = 0
	cfg.CarveThreshold = 0.8
	return cfg
}

// fillChunk заполняет чанк одним описанием и строит сетки
func fillChunk(c *Chunk, def *block.Definition) {
	for i := range c.positions {
		c.setDefinition(i, def)
	}
	c.BuildTransparency()
}
