// @title FocusMath 后端 API
// @version 1.0
// @description FocusMath 自适应练习平台的后端服务器：答题记录、自适应难度、连续学习天数、代币与关卡奖励。

// @contact.name API支持
// @contact.email support@focusmath.dev

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"focusmath_backend/internal/app"
	"focusmath_backend/internal/config"
	"focusmath_backend/pkg/logger"
	"log"

	"go.uber.org/zap"
)

func main() {
	// 命令行参数
	configDir := flag.String("config", "configs", "配置文件目录（包含 config.yaml）")
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.MigrateOnly = *migrateOnly

	logger.InitLogger(cfg)
	defer logger.Log.Sync()
	logger.Log.Info("Logger initialized successfully")

	application, err := app.NewApp(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize application", zap.Error(err))
	}

	// 迁移完成后直接退出
	if *migrateOnly {
		logger.Log.Info("数据库迁移完成，退出程序")
		return
	}

	application.Run()
}
