package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/annel0/voxel-engine/internal/app"
	"github.com/annel0/voxel-engine/internal/auth"
	"github.com/annel0/voxel-engine/internal/eventbus"
	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/middleware"
	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/annel0/voxel-engine/internal/world"
	"github.com/annel0/voxel-engine/internal/world/block"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// WorldService операции мира, доступные через REST (реализуется app.World)
type WorldService interface {
	Snapshot() *app.Snapshot
	ChunkInfo(ctx context.Context, pos world.ChunkPosition) (app.ChunkDetails, error)
	GetBlock(ctx context.Context, pos vec.Vec3) (block.BlockID, error)
	SetBlock(ctx context.Context, pos vec.Vec3, id block.BlockID) error
	MoveLoader(ctx context.Context, id uuid.UUID, pos vec.Vec3) error
	RemoveLoader(ctx context.Context, id uuid.UUID) error
}

// RestServer представляет REST API сервер
type RestServer struct {
	router      *gin.Engine
	server      *http.Server
	world       WorldService
	issuer      *auth.Issuer
	requireAuth bool
	events      eventbus.EventBus
	metrics     *ServerMetrics
	httpMetrics *middleware.HTTPMetrics
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port        string       // порт для запуска сервера
	World       WorldService // мир
	Issuer      *auth.Issuer // проверка токенов; nil – без аутентификации
	RequireAuth bool         // правки только с токеном editor

	Events eventbus.EventBus // nil – поток /api/events отключён

	Registry prometheus.Registerer // nil – дефолтный регистр
	Gatherer prometheus.Gatherer   // nil – дефолтный сборщик
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) (*RestServer, error) {
	if config.World == nil {
		return nil, fmt.Errorf("REST серверу нужен мир")
	}
	if config.RequireAuth && config.Issuer == nil {
		return nil, fmt.Errorf("аутентификация включена, но издатель токенов не задан")
	}
	if config.Port == "" {
		config.Port = ":8088"
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware("rest_api"))
	router.Use(middleware.AccessLog(middleware.AccessLogOptions{Quiet: []string{"/health", "/metrics"}}))

	httpMetrics, err := middleware.NewHTTPMetrics("voxel_api", config.Registry)
	if err != nil {
		return nil, fmt.Errorf("метрики REST API: %w", err)
	}
	router.Use(httpMetrics.Handler())
	router.GET("/metrics", middleware.MetricsHandler(config.Gatherer))

	rs := &RestServer{
		router:      router,
		world:       config.World,
		issuer:      config.Issuer,
		requireAuth: config.RequireAuth,
		events:      config.Events,
		metrics:     NewServerMetrics(),
		httpMetrics: httpMetrics,
	}
	rs.server = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Настраиваем маршруты
	rs.setupRoutes()
	return rs, nil
}

// Handler возвращает http.Handler (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	// Middleware для CORS
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/server", rs.handleServerInfo)
		api.GET("/world", rs.handleWorld)
		api.GET("/chunks", rs.handleChunks)
		api.GET("/chunks/:x/:y/:z", rs.handleChunk)
		api.GET("/blocks", rs.handleGetBlock)
		api.GET("/loaders", rs.handleLoaders)
		if rs.events != nil {
			api.GET("/events", rs.handleEvents)
		}
	}

	// Изменяющие эндпоинты
	edit := api.Group("/")
	if rs.requireAuth {
		edit.Use(rs.requireRole(auth.RoleEditor))
	}
	{
		edit.POST("/blocks", rs.handleSetBlock)
		edit.PUT("/loaders/:id", rs.handleMoveLoader)
		edit.DELETE("/loaders/:id", rs.handleRemoveLoader)
	}
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// BlockRequest правка блока
type BlockRequest struct {
	X     int           `json:"x"`
	Y     int           `json:"y"`
	Z     int           `json:"z"`
	Block block.BlockID `json:"block"`
}

// LoaderRequest позиция сущности в блоках
type LoaderRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, GenericResponse{Success: false, Message: message, RequestID: middleware.RequestID(c)})
}

func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: message, Data: data})
}

// worldError переводит ошибку мира в HTTP статус
func worldError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, world.ErrNotResident):
		respondError(c, http.StatusNotFound, "Чанк не загружен")
	case errors.Is(err, app.ErrUnknownBlock):
		respondError(c, http.StatusBadRequest, "Неизвестный блок")
	case errors.Is(err, app.ErrUnknownLoader):
		respondError(c, http.StatusNotFound, "Сущность не найдена")
	case errors.Is(err, app.ErrStopped):
		respondError(c, http.StatusServiceUnavailable, "Мир остановлен")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		respondError(c, http.StatusGatewayTimeout, "Мир не ответил вовремя")
	default:
		logging.Error("❌ Ошибка мира (запрос %s): %v", middleware.RequestID(c), err)
		respondError(c, http.StatusInternalServerError, "Внутренняя ошибка сервера")
	}
}

// requestContext контекст запроса с ограничением ожидания горутины тика
func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), 5*time.Second)
}

// handleHealth простая проверка живости
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleServerInfo возвращает информацию о сервере
func (rs *RestServer) handleServerInfo(c *gin.Context) {
	cpuPercent, _ := rs.metrics.GetCPUUsage()

	respondOK(c, "Информация о сервере", map[string]interface{}{
		"name":        "Voxel Engine",
		"status":      "running",
		"uptime":      rs.metrics.GetUptime(),
		"cpu_percent": fmt.Sprintf("%.1f", cpuPercent),
		"memory":      rs.metrics.GetMemoryStats(),
	})
}

// handleWorld сводка мира без списка чанков
func (rs *RestServer) handleWorld(c *gin.Context) {
	snap := rs.world.Snapshot()
	respondOK(c, "Состояние мира", gin.H{
		"tick":     snap.Tick,
		"time":     snap.Time,
		"budget":   snap.Budget,
		"resident": snap.Resident,
		"states":   snap.States,
		"meshes":   snap.Meshes,
		"faces":    snap.Faces,
		"loaders":  len(snap.Loaders),
	})
}

// handleChunks список загруженных чанков; ?state= фильтрует по состоянию
func (rs *RestServer) handleChunks(c *gin.Context) {
	snap := rs.world.Snapshot()
	state := strings.ToUpper(c.Query("state"))

	chunks := make([]app.ChunkSummary, 0, len(snap.Chunks))
	for _, ch := range snap.Chunks {
		if state != "" && ch.State != state {
			continue
		}
		chunks = append(chunks, ch)
	}
	respondOK(c, "Список чанков", gin.H{"chunks": chunks, "total": len(chunks), "tick": snap.Tick})
}

// handleChunk подробности о чанке
func (rs *RestServer) handleChunk(c *gin.Context) {
	pos, err := parseChunkPosition(c.Param("x"), c.Param("y"), c.Param("z"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	details, err := rs.world.ChunkInfo(ctx, pos)
	if err != nil {
		worldError(c, err)
		return
	}
	respondOK(c, "Чанк "+pos.String(), details)
}

// handleGetBlock блок по мировым координатам ?x=&y=&z=
func (rs *RestServer) handleGetBlock(c *gin.Context) {
	coords, err := parseInts(c.Query("x"), c.Query("y"), c.Query("z"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	pos := vec.Vec3{X: coords[0], Y: coords[1], Z: coords[2]}

	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := rs.world.GetBlock(ctx, pos)
	if err != nil {
		worldError(c, err)
		return
	}
	respondOK(c, "Блок", BlockRequest{X: pos.X, Y: pos.Y, Z: pos.Z, Block: id})
}

// handleSetBlock правка блока
func (rs *RestServer) handleSetBlock(c *gin.Context) {
	var req BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	pos := vec.Vec3{X: req.X, Y: req.Y, Z: req.Z}
	if err := rs.world.SetBlock(ctx, pos, req.Block); err != nil {
		worldError(c, err)
		return
	}
	logging.Info("🧱 Блок %v заменён на %d (%s)", pos, req.Block, operatorOf(c))
	respondOK(c, "Блок изменён", req)
}

// handleLoaders позиции сущностей
func (rs *RestServer) handleLoaders(c *gin.Context) {
	snap := rs.world.Snapshot()
	respondOK(c, "Список сущностей", gin.H{"loaders": snap.Loaders, "total": len(snap.Loaders)})
}

// handleMoveLoader создаёт или перемещает сущность
func (rs *RestServer) handleMoveLoader(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Некорректный идентификатор сущности")
		return
	}
	var req LoaderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	pos := vec.Vec3{X: req.X, Y: req.Y, Z: req.Z}
	if err := rs.world.MoveLoader(ctx, id, pos); err != nil {
		worldError(c, err)
		return
	}
	respondOK(c, "Сущность перемещена", gin.H{"id": id, "position": pos})
}

// handleRemoveLoader удаляет сущность
func (rs *RestServer) handleRemoveLoader(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Некорректный идентификатор сущности")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := rs.world.RemoveLoader(ctx, id); err != nil {
		worldError(c, err)
		return
	}
	respondOK(c, "Сущность удалена", gin.H{"id": id})
}

func parseInts(values ...string) ([]int, error) {
	out := make([]int, len(values))
	for i, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("некорректная координата %q", v)
		}
		out[i] = n
	}
	return out, nil
}

func parseChunkPosition(x, y, z string) (world.ChunkPosition, error) {
	coords, err := parseInts(x, y, z)
	if err != nil {
		return world.ChunkPosition{}, err
	}
	return world.ChunkPosition{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}

// Start запускает REST сервер и блокируется до остановки
func (rs *RestServer) Start() error {
	logging.Info("🌐 REST API слушает %s", rs.server.Addr)
	if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop останавливает REST сервер, дожидаясь завершения запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.server.Shutdown(ctx)
}
