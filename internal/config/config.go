package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/mesh"
	"github.com/annel0/voxel-engine/internal/world"
	"github.com/annel0/voxel-engine/internal/world/block"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
// Незаданные поля заменяются значениями по умолчанию.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Generator GeneratorConfig `yaml:"generator"`
	Storage   StorageConfig   `yaml:"storage"`
	Loaders   LoadersConfig   `yaml:"loaders"`
	Events    EventsConfig    `yaml:"events"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type WorldConfig struct {
	Seed        uint32 `yaml:"seed"`
	Source      string `yaml:"source"`       // local | network
	ViewRadius  int    `yaml:"view_radius"`  // радиус загрузки вокруг сущности, в чанках
	MaxResident int    `yaml:"max_resident"` // 0 – оценка по свободной памяти
	TickRate    int    `yaml:"tick_rate"`    // тиков в секунду
	// MissingNeighbors как рисовать грани на границе с незагруженным чанком: cull | draw
	MissingNeighbors string `yaml:"missing_neighbors"`
}

// GeneratorConfig переопределения генератора; нули означают значение по умолчанию
type GeneratorConfig struct {
	WormFrequency     float64          `yaml:"worm_frequency"`
	RavineFrequency   float64          `yaml:"ravine_frequency"`
	RavineStretch     float64          `yaml:"ravine_stretch"`
	FeatureFrequency  float64          `yaml:"feature_frequency"`
	FeatureLow        float64          `yaml:"feature_low"`
	FeatureHigh       float64          `yaml:"feature_high"`
	WarpFrequency     float64          `yaml:"warp_frequency"`
	WarpAmplitude     float64          `yaml:"warp_amplitude"`
	CarveThreshold    float64          `yaml:"carve_threshold"`
	MaterialFrequency float64          `yaml:"material_frequency"`
	Materials         []MaterialConfig `yaml:"materials"`
}

type MaterialConfig struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

type StorageConfig struct {
	Enabled     bool   `yaml:"enabled"`
	DataPath    string `yaml:"data_path"`
	Compression int    `yaml:"compression_level"` // уровень zstd 1..4
}

type LoadersConfig struct {
	Backend         string `yaml:"backend"` // memory | sqlite | redis | mariadb
	DSN             string `yaml:"dsn"`     // для mariadb
	SQLitePath      string `yaml:"sqlite_path"`
	RedisAddr       string `yaml:"redis_addr"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	RedisKey        string `yaml:"redis_key"`
	AutosaveSeconds int    `yaml:"autosave_seconds"`
}

type EventsConfig struct {
	Backend        string `yaml:"backend"` // none | memory | nats
	NATSURL        string `yaml:"nats_url"`
	Stream         string `yaml:"stream"`
	RetentionHours int    `yaml:"retention_hours"`
	BufferSize     int    `yaml:"buffer_size"` // для memory
	LogEvents      bool   `yaml:"log_events"`
	Consumer       string `yaml:"consumer"` // префикс durable-подписчиков JetStream
}

type ServerConfig struct {
	RESTPort    int    `yaml:"rest_port"`
	MetricsPort int    `yaml:"metrics_port"`
	RequireAuth bool   `yaml:"require_auth"` // правки через API только с токеном editor
	JWTSecret   string `yaml:"jwt_secret"`   // base64; пусто – VOXEL_JWT_SECRET или случайный
	TokenTTL    int    `yaml:"token_ttl_hours"`
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`

	// Components уровни отдельных компонентов: world: TRACE, http: WARN
	Components map[string]string `yaml:"components"`
}

type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.World.Source == "" {
		c.World.Source = world.SourceLocal.String()
	}
	if c.World.ViewRadius <= 0 {
		c.World.ViewRadius = 4
	}
	if c.World.TickRate <= 0 {
		c.World.TickRate = 20
	}
	if c.World.MissingNeighbors == "" {
		c.World.MissingNeighbors = "cull"
	}
	if c.Storage.DataPath == "" {
		c.Storage.DataPath = "data"
	}
	if c.Storage.Compression <= 0 {
		c.Storage.Compression = 3
	}
	if c.Loaders.Backend == "" {
		c.Loaders.Backend = "memory"
	}
	if c.Loaders.SQLitePath == "" {
		c.Loaders.SQLitePath = filepath.Join(c.Storage.DataPath, "loaders.db")
	}
	if c.Loaders.RedisAddr == "" {
		c.Loaders.RedisAddr = "localhost:6379"
	}
	if c.Loaders.RedisKey == "" {
		c.Loaders.RedisKey = "voxel:loaders"
	}
	if c.Loaders.AutosaveSeconds <= 0 {
		c.Loaders.AutosaveSeconds = 30
	}
	if c.Events.Backend == "" {
		c.Events.Backend = "none"
	}
	if c.Events.NATSURL == "" {
		c.Events.NATSURL = "nats://127.0.0.1:4222"
	}
	if c.Events.Stream == "" {
		c.Events.Stream = "VOXEL"
	}
	if c.Events.RetentionHours <= 0 {
		c.Events.RetentionHours = 24
	}
	if c.Events.BufferSize <= 0 {
		c.Events.BufferSize = 1024
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
	if c.Logging.ConsoleLevel == "" {
		c.Logging.ConsoleLevel = "INFO"
	}
	if c.Logging.FileLevel == "" {
		c.Logging.FileLevel = "DEBUG"
	}
	if c.Server.JWTSecret == "" {
		c.Server.JWTSecret = os.Getenv("VOXEL_JWT_SECRET")
	}
	if c.Server.TokenTTL <= 0 {
		c.Server.TokenTTL = 24
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "voxel-engine"
	}
	if c.Telemetry.SampleRatio <= 0 {
		c.Telemetry.SampleRatio = 1
	}
}

// Validate проверяет значения, которые нельзя исправить умолчаниями
func (c *Config) Validate() error {
	if _, err := world.ParseSourceKind(c.World.Source); err != nil {
		return err
	}
	if _, err := c.World.MissingPolicy(); err != nil {
		return err
	}
	if c.Storage.Compression > 4 {
		return fmt.Errorf("storage.compression_level: ожидалось 1..4, получено %d", c.Storage.Compression)
	}
	switch c.Loaders.Backend {
	case "memory", "sqlite", "redis":
	case "mariadb":
		if c.Loaders.DSN == "" {
			return fmt.Errorf("loaders.dsn обязателен для mariadb")
		}
	default:
		return fmt.Errorf("неизвестный backend сущностей %q", c.Loaders.Backend)
	}
	switch c.Events.Backend {
	case "none", "memory", "nats":
	default:
		return fmt.Errorf("неизвестный backend событий %q", c.Events.Backend)
	}
	if _, err := logging.ParseLevel(c.Logging.ConsoleLevel); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Logging.FileLevel); err != nil {
		return err
	}
	for component, level := range c.Logging.Components {
		if _, err := logging.ParseLevel(level); err != nil {
			return fmt.Errorf("logging.components.%s: %w", component, err)
		}
	}
	if c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio: ожидалось (0, 1], получено %g", c.Telemetry.SampleRatio)
	}
	return nil
}

// Retention срок хранения событий в стриме
func (e *EventsConfig) Retention() time.Duration {
	return time.Duration(e.RetentionHours) * time.Hour
}

// SourceKind возвращает вид источника чанков
func (w *WorldConfig) SourceKind() world.SourceKind {
	kind, _ := world.ParseSourceKind(w.Source)
	return kind
}

// MissingPolicy переводит missing_neighbors в политику мешинга
func (w *WorldConfig) MissingPolicy() (mesh.MissingPolicy, error) {
	switch w.MissingNeighbors {
	case "", "cull":
		return mesh.CullMissing, nil
	case "draw":
		return mesh.DrawMissing, nil
	default:
		return mesh.CullMissing, fmt.Errorf("world.missing_neighbors: неизвестное значение %q", w.MissingNeighbors)
	}
}

// TickInterval длительность одного тика мира
func (w *WorldConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(w.TickRate)
}

// ToGeneratorConfig накладывает переопределения на настройки генератора по умолчанию.
// Материалы задаются именами блоков и ищутся в таблице.
func (g *GeneratorConfig) ToGeneratorConfig(table *block.Table) (world.GeneratorConfig, error) {
	out := world.DefaultGeneratorConfig()

	override := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}
	override(&out.WormFrequency, g.WormFrequency)
	override(&out.RavineFrequency, g.RavineFrequency)
	override(&out.RavineStretch, g.RavineStretch)
	override(&out.FeatureFrequency, g.FeatureFrequency)
	override(&out.FeatureLow, g.FeatureLow)
	override(&out.FeatureHigh, g.FeatureHigh)
	override(&out.WarpFrequency, g.WarpFrequency)
	override(&out.WarpAmplitude, g.WarpAmplitude)
	override(&out.CarveThreshold, g.CarveThreshold)
	override(&out.MaterialFrequency, g.MaterialFrequency)

	if len(g.Materials) > 0 {
		out.Materials = make([]world.MaterialWeight, 0, len(g.Materials))
		for _, m := range g.Materials {
			def, ok := table.ByName(m.Name)
			if !ok {
				return out, fmt.Errorf("generator.materials: неизвестный блок %q", m.Name)
			}
			out.Materials = append(out.Materials, world.MaterialWeight{ID: def.ID, Weight: m.Weight})
		}
	}
	return out, nil
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "VOXEL_REST_PORT", 8088)
}

// TokenLifetime время жизни выдаваемых токенов
func (s *ServerConfig) TokenLifetime() time.Duration {
	return time.Duration(s.TokenTTL) * time.Hour
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "VOXEL_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать путь из ENV VOXEL_CONFIG; если и он
// не задан, возвращает конфигурацию по умолчанию.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse разбирает YAML, применяет умолчания и проверяет результат
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
