package main

import (
	"net/http"

	"github.com/FENGXUBAI/yaojin-server-sub001/config"
	"github.com/FENGXUBAI/yaojin-server-sub001/internal/game/engine"
	"github.com/FENGXUBAI/yaojin-server-sub001/internal/game/manager"
	"github.com/FENGXUBAI/yaojin-server-sub001/internal/matchmaker"
	"github.com/FENGXUBAI/yaojin-server-sub001/internal/middleware"
	"github.com/FENGXUBAI/yaojin-server-sub001/internal/storage"
	"github.com/FENGXUBAI/yaojin-server-sub001/internal/utils"
	"github.com/FENGXUBAI/yaojin-server-sub001/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	config.Load()
	utils.Init()

	//-------------------------------------------------------
	// 1. 初始化 Redis
	//-------------------------------------------------------
	if err := storage.InitRedis(
		config.C.Redis.Addr,
		config.C.Redis.Password,
		config.C.Redis.DB,
	); err != nil {
		utils.Error.Fatalf("Redis init failed: %v", err)
	}

	//-------------------------------------------------------
	// 2. 初始化 Postgres（对局结算落库）
	//-------------------------------------------------------
	if err := storage.InitPostgres(config.C.Database.DSN); err != nil {
		utils.Error.Fatalf("Postgres init failed: %v", err)
	}
	results := storage.NewResultStore(storage.DB)

	//-------------------------------------------------------
	// 3. 初始化 Gin + CORS
	//-------------------------------------------------------
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	//-------------------------------------------------------
	// 4. 初始化 Hub（必须最先启动）
	//-------------------------------------------------------
	hub := websocket.NewHub()
	go hub.Run()

	//-------------------------------------------------------
	// 5. 初始化 GameManager（用来启动 Engine）
	//-------------------------------------------------------
	gameCfg := engine.Config{
		BasePoint:      config.C.Game.BasePoint,
		EnableTribute:  config.C.Game.EnableTribute,
		DoubleTribute:  config.C.Game.DoubleTribute,
		TributeTimeout: config.C.Game.TributeTimeout,
		BotDelay:       config.C.Game.BotDelay,
		GraceDelay:     config.C.Game.GraceDelay,
	}
	gameMgr := manager.NewGameManager(hub, gameCfg, results)

	hub.OnIncoming = gameMgr.HandlePlayerMessage
	hub.OnDisconnect = gameMgr.HandleDisconnect

	//-------------------------------------------------------
	// 6. 初始化匹配系统 Matchmaker
	//-------------------------------------------------------
	repo := matchmaker.NewRedisRepo(storage.Rdb)
	svc := matchmaker.NewService(repo, int(config.C.Matchmaker.PlayerTTL.Seconds()), hub)

	// 成桌回调：交给 GameManager 启动 Engine
	svc.OnRoomReady = func(room *matchmaker.Room) {
		utils.Info.Printf("Room ready: %s Players=%v", room.ID, room.Players)

		if err := gameMgr.StartRoomFromMatch(room); err != nil {
			utils.Error.Printf("StartRoomFromMatch error: %v", err)
		}
	}

	//-------------------------------------------------------
	// 7. 鉴权路由：WebSocket 入口 + 匹配接口
	//-------------------------------------------------------
	secret := ([]byte)(config.C.JWT.Secret)
	auth := r.Group("/", middleware.JwtAuthMiddleware(secret))
	{
		auth.GET("/ws", websocket.ServeWS(hub))

		mh := matchmaker.NewHandler(svc)
		auth.POST("/match/join", mh.Join)
		auth.POST("/match/cancel", mh.Cancel)
	}

	//-------------------------------------------------------
	// 8. 启动服务器
	//-------------------------------------------------------
	utils.Info.Printf("Server running on %s", config.C.Server.Port)
	r.Run(":" + config.C.Server.Port)
}
