package vec

// Direction определяет одно из шести направлений граней куба.
// Порядок фиксирован: он используется как индекс в массивах соседей.
type Direction uint8

const (
	East  Direction = iota // +X
	West                   // -X
	Up                     // +Y
	Down                   // -Y
	South                  // +Z
	North                  // -Z

	DirectionCount // всегда последний: количество направлений
)

// directionOffsets смещения для каждого направления
var directionOffsets = [DirectionCount]Vec3{
	East:  {X: 1},
	West:  {X: -1},
	Up:    {Y: 1},
	Down:  {Y: -1},
	South: {Z: 1},
	North: {Z: -1},
}

var directionNames = [DirectionCount]string{"east", "west", "up", "down", "south", "north"}

// Directions перечисляет все направления в каноническом порядке
var Directions = [DirectionCount]Direction{East, West, Up, Down, South, North}

// Offset возвращает единичное смещение направления
func (d Direction) Offset() Vec3 {
	return directionOffsets[d]
}

// Opposite возвращает противоположное направление
func (d Direction) Opposite() Direction {
	return d ^ 1
}

// Axis возвращает номер оси направления: 0 – X, 1 – Y, 2 – Z
func (d Direction) Axis() int {
	return int(d) >> 1
}

// Positive сообщает, смотрит ли направление в сторону увеличения координаты
func (d Direction) Positive() bool {
	return d&1 == 0
}

func (d Direction) String() string {
	if d >= DirectionCount {
		return "unknown"
	}
	return directionNames[d]
}
