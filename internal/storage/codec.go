package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/annel0/voxel-engine/internal/world/block"
	"github.com/annel0/voxel-engine/internal/world/blockpos"
	"github.com/klauspost/compress/zstd"
)

// snapshotVersion версия бинарного формата снимка чанка
const snapshotVersion byte = 1

// snapshotSize размер несжатого снимка: версия + 4096 × uint16
const snapshotSize = 1 + blockpos.Capacity*2

// Codec кодирует снимки чанков: байт версии, затем ID материалов
// little-endian в порядке линейного индекса; всё сжимается zstd.
// Кодер и декодер zstd безопасны для параллельного EncodeAll/DecodeAll.
type Codec struct {
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
}

// NewCodec создаёт кодек с указанным уровнем сжатия zstd (1..4)
func NewCodec(level int) (*Codec, error) {
	compressor, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания компрессора: %w", err)
	}
	decompressor, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(1<<20))
	if err != nil {
		compressor.Close()
		return nil, fmt.Errorf("ошибка создания декомпрессора: %w", err)
	}
	return &Codec{compressor: compressor, decompressor: decompressor}, nil
}

// Encode сериализует и сжимает материалы чанка
func (c *Codec) Encode(materials []block.BlockID) ([]byte, error) {
	if len(materials) != blockpos.Capacity {
		return nil, fmt.Errorf("ожидалось %d блоков, получено %d", blockpos.Capacity, len(materials))
	}

	raw := make([]byte, snapshotSize)
	raw[0] = snapshotVersion
	for i, id := range materials {
		binary.LittleEndian.PutUint16(raw[1+i*2:], uint16(id))
	}
	return c.compressor.EncodeAll(raw, nil), nil
}

// Decode распаковывает снимок
func (c *Codec) Decode(data []byte) ([]block.BlockID, error) {
	raw, err := c.decompressor.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки снимка: %w", err)
	}
	if len(raw) != snapshotSize {
		return nil, fmt.Errorf("неверный размер снимка: %d байт, ожидалось %d", len(raw), snapshotSize)
	}
	if raw[0] != snapshotVersion {
		return nil, fmt.Errorf("неподдерживаемая версия снимка %d", raw[0])
	}

	materials := make([]block.BlockID, blockpos.Capacity)
	for i := range materials {
		materials[i] = block.BlockID(binary.LittleEndian.Uint16(raw[1+i*2:]))
	}
	return materials, nil
}

// Close освобождает ресурсы zstd
func (c *Codec) Close() {
	c.compressor.Close()
	c.decompressor.Close()
}
