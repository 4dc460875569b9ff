package storage

import (
	"os"
	"testing"

	"github.com/annel0/voxel-engine/internal/logging"
	_ "github.com/annel0/voxel-engine/internal/world/block/implementations"
)

func TestMain(m *testing.M) {
	logging.Configure("", logging.WARN, logging.WARN)
	os.Exit(m.Run())
}
