package storage

import (
	"encoding/binary"
	"testing"

	"github.com/annel0/voxel-engine/internal/world/block"
	"github.com/annel0/voxel-engine/internal/world/blockpos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMaterials() []block.BlockID {
	materials := make([]block.BlockID, blockpos.Capacity)
	for i := range materials {
		switch {
		case i%7 == 0:
			materials[i] = block.AirBlockID
		case i%5 == 0:
			materials[i] = block.GraniteBlockID
		default:
			materials[i] = block.StoneBlockID
		}
	}
	return materials
}

func TestCodecRoundTrip(t *testing.T) {
	codec, err := NewCodec(3)
	require.NoError(t, err)
	defer codec.Close()

	materials := sampleMaterials()
	data, err := codec.Encode(materials)
	require.NoError(t, err)
	assert.Less(t, len(data), snapshotSize, "однородный снимок должен сжиматься")

	decoded, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, materials, decoded)
}

func TestCodecRejectsWrongLength(t *testing.T) {
	codec, err := NewCodec(1)
	require.NoError(t, err)
	defer codec.Close()

	_, err = codec.Encode(make([]block.BlockID, 10))
	assert.Error(t, err)
}

func TestCodecRejectsCorruptData(t *testing.T) {
	codec, err := NewCodec(1)
	require.NoError(t, err)
	defer codec.Close()

	_, err = codec.Decode([]byte("не zstd"))
	assert.Error(t, err)

	// Корректный zstd, но обрезанный снимок
	short := codec.compressor.EncodeAll([]byte{snapshotVersion, 1, 0}, nil)
	_, err = codec.Decode(short)
	assert.Error(t, err)
}

func TestCodecRejectsUnknownVersion(t *testing.T) {
	codec, err := NewCodec(1)
	require.NoError(t, err)
	defer codec.Close()

	raw := make([]byte, snapshotSize)
	raw[0] = snapshotVersion + 1
	binary.LittleEndian.PutUint16(raw[1:], uint16(block.StoneBlockID))

	_, err = codec.Decode(codec.compressor.EncodeAll(raw, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "версия")
}
