package world

import "sort"

// PositionsInRadius возвращает позиции чанков внутри сферы радиуса r
// (в чанках) вокруг center, от ближних к дальним.
// Порядок при равном расстоянии детерминирован.
func PositionsInRadius(center ChunkPosition, r int) []ChunkPosition {
	if r < 0 {
		return nil
	}

	rr := r * r
	positions := make([]ChunkPosition, 0, (2*r+1)*(2*r+1)*(2*r+1))
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			for dz := -r; dz <= r; dz++ {
				if dx*dx+dy*dy+dz*dz > rr {
					continue
				}
				positions = append(positions, ChunkPosition{X: center.X + dx, Y: center.Y + dy, Z: center.Z + dz})
			}
		}
	}

	sort.Slice(positions, func(i, j int) bool {
		di, dj := positions[i].DistanceSq(center), positions[j].DistanceSq(center)
		if di != dj {
			return di < dj
		}
		return positions[i].Less(positions[j])
	})
	return positions
}

// SortPositions упорядочивает позиции детерминированно
func SortPositions(positions []ChunkPosition) {
	sort.Slice(positions, func(i, j int) bool { return positions[i].Less(positions[j]) })
}
