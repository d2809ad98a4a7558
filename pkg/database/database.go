package database

import (
	"fmt"
	"focusmath_backend/internal/config"
	"focusmath_backend/internal/model"
	"focusmath_backend/internal/util"
	"log"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 按 driver 建立连接，不执行迁移
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case util.DriverMySQL:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=UTC",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		dialector = mysql.Open(dsn)
	case util.DriverPostgres:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			cfg.Host,
			cfg.Port,
			cfg.User,
			cfg.Password,
			cfg.DBName,
			cfg.SSLMode,
		)
		dialector = postgres.Open(dsn)
	case util.DriverSQLite, "":
		path := cfg.Path
		if path == "" {
			path = ":memory:"
		}
		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, err
	}

	// 内存库每个连接都是独立的数据库，只能保留一个连接
	if cfg.Driver == util.DriverSQLite || cfg.Driver == "" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.UserPerformance{},
		&model.SessionResult{},
		&model.Game{},
		&model.GameProgress{},
		&model.Reward{},
		&model.Question{},
	)
	if err != nil {
		return err
	}

	return seedGames(db)
}

// 默认游戏目录，按章节分组
func seedGames(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Game{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	games := []model.Game{
		{Code: "unit-circle", Title: "Unit Circle Spinner", Chapter: "trigonometry-basics", Subject: model.SubjectTrigonometry, Order: 1},
		{Code: "sine-wave", Title: "Ride the Sine Wave", Chapter: "trigonometry-basics", Subject: model.SubjectTrigonometry, Order: 2},
		{Code: "angle-hunt", Title: "Angle Hunt", Chapter: "trigonometry-basics", Subject: model.SubjectTrigonometry, Order: 3},
		{Code: "balance-scale", Title: "Balance the Scale", Chapter: "linear-equations", Subject: model.SubjectAlgebra, Order: 1},
		{Code: "pattern-builder", Title: "Pattern Builder", Chapter: "linear-equations", Subject: model.SubjectAlgebra, Order: 2},
		{Code: "cube-stack", Title: "Cube Stacker", Chapter: "solids", Subject: model.SubjectVolume, Order: 1},
		{Code: "cylinder-fill", Title: "Fill the Cylinder", Chapter: "solids", Subject: model.SubjectVolume, Order: 2},
		{Code: "dice-roll", Title: "Dice Lab", Chapter: "chance", Subject: model.SubjectProbability, Order: 1},
		{Code: "coin-flip", Title: "Coin Flip Streaks", Chapter: "chance", Subject: model.SubjectProbability, Order: 2},
		{Code: "pizza-slices", Title: "Pizza Slices", Chapter: "parts-of-a-whole", Subject: model.SubjectFractions, Order: 1},
		{Code: "number-line", Title: "Number Line Jump", Chapter: "parts-of-a-whole", Subject: model.SubjectFractions, Order: 2},
	}
	for i := range games {
		games[i].Enabled = true
	}
	return db.Create(&games).Error
}

func logLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	}
	return logger.Warn
}
