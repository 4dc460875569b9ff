package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/annel0/voxel-engine/internal/auth"
	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/mesh"
	"github.com/annel0/voxel-engine/internal/storage"
	"github.com/annel0/voxel-engine/internal/util"
	"github.com/annel0/voxel-engine/internal/world"
	"github.com/annel0/voxel-engine/internal/world/block"
	_ "github.com/annel0/voxel-engine/internal/world/block/implementations"
)

func main() {
	var (
		command  = flag.String("cmd", "gen", "Command: gen, inspect, count, token")
		seed     = flag.Uint("seed", 0, "World seed (gen)")
		x        = flag.Int("x", 0, "Chunk X")
		y        = flag.Int("y", 0, "Chunk Y")
		z        = flag.Int("z", 0, "Chunk Z")
		dataPath = flag.String("data", "data", "Storage data path (inspect, count)")
		secret   = flag.String("secret", os.Getenv("VOXEL_JWT_SECRET"), "Base64 JWT secret (token)")
		operator = flag.String("operator", "cli", "Operator name (token)")
		role     = flag.String("role", string(auth.RoleEditor), "Role: viewer, editor (token)")
		ttl      = flag.Duration("ttl", 24*time.Hour, "Token lifetime (token)")
	)
	flag.Parse()

	// Логи библиотек только об ошибках, без файлов
	logging.Configure("", logging.ERROR, logging.ERROR)

	pos := world.ChunkPosition{X: *x, Y: *y, Z: *z}
	var err error
	switch *command {
	case "gen":
		err = generate(uint32(*seed), pos)
	case "inspect":
		err = inspect(*dataPath, pos)
	case "count":
		err = count(*dataPath)
	case "token":
		err = token(*secret, *operator, auth.Role(*role), *ttl)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
}

// generate генерирует чанк с соседями и печатает его состав и число видимых граней
func generate(seed uint32, pos world.ChunkPosition) error {
	ctx := context.Background()
	table := block.Default()

	generator, err := world.NewGenerator(util.NewNoiseContext(seed), table, world.DefaultGeneratorConfig())
	if err != nil {
		return err
	}
	source, err := world.NewLocalSource(generator, nil, nil)
	if err != nil {
		return err
	}
	manager, err := world.NewManager(world.ManagerOptions{Table: table, Source: source, MaxResident: 7})
	if err != nil {
		return err
	}
	defer manager.Close(ctx)

	start := time.Now()
	created, _, err := manager.Acquire(world.PositionsInRadius(pos, 1))
	if err != nil {
		return err
	}
	report, err := manager.PopulateNew(ctx, created)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	c, ok := manager.Get(pos)
	if !ok {
		return fmt.Errorf("%s не сгенерирован (неудачных: %d)", pos, len(report.Failed))
	}

	conservative, err := mesh.Extract(manager, c)
	if err != nil {
		return err
	}

	fmt.Printf("%s seed=%d: %d чанков за %v\n", pos, seed, len(report.Loaded), elapsed.Round(time.Millisecond))
	fmt.Printf("твёрдых блоков: %d/4096, видимых граней: %d\n", c.SolidCount(), conservative.Len())
	printHistogram(table, c.MaterialHistogram())
	return nil
}

// inspect печатает состав сохранённого чанка
func inspect(dataPath string, pos world.ChunkPosition) error {
	cs, err := storage.NewChunkStorage(dataPath, 1)
	if err != nil {
		return err
	}
	defer cs.Close()

	materials, err := cs.LoadChunk(context.Background(), pos)
	if err != nil {
		return fmt.Errorf("%s: %w", pos, err)
	}

	hist := make(map[block.BlockID]int)
	for _, id := range materials {
		hist[id]++
	}
	fmt.Printf("%s из %s\n", pos, dataPath)
	printHistogram(block.Default(), hist)
	return nil
}

// count печатает количество сохранённых чанков
func count(dataPath string) error {
	cs, err := storage.NewChunkStorage(dataPath, 1)
	if err != nil {
		return err
	}
	defer cs.Close()

	n, err := cs.Count()
	if err != nil {
		return err
	}
	fmt.Printf("сохранённых чанков: %d\n", n)
	return nil
}

// token выпускает токен оператора REST API
func token(secret, operator string, role auth.Role, ttl time.Duration) error {
	if secret == "" {
		return fmt.Errorf("нужен -secret или VOXEL_JWT_SECRET (новый секрет: %s)", auth.GenerateSecureSecret())
	}
	issuer, err := auth.NewIssuer(secret, ttl)
	if err != nil {
		return err
	}
	t, err := issuer.Generate(operator, role)
	if err != nil {
		return err
	}
	fmt.Println(t)
	return nil
}

func printHistogram(table *block.Table, hist map[block.BlockID]int) {
	ids := make([]block.BlockID, 0, len(hist))
	for id := range hist {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return hist[ids[i]] > hist[ids[j]] })

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tБЛОК\tКОЛ-ВО\tДОЛЯ")
	for _, id := range ids {
		name := "?"
		if def, ok := table.Get(id); ok {
			name = def.Name
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.1f%%\n", id, name, hist[id], float64(hist[id])*100/4096)
	}
	tw.Flush()
}
