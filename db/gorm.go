package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"songrab/config"
	"songrab/logger"
	"songrab/model"
)

// GormDB 是 GORM 数据库连接实例
// 与 DB (*sql.DB) 并存：GORM 负责建表迁移，仓储层继续走 database/sql
var GormDB *gorm.DB

// ConnectGormDB 建立 GORM 数据库连接并迁移历史表
func ConnectGormDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	GormDB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		// 禁用外键约束
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect database with GORM: %w", err)
	}

	if err := GormDB.AutoMigrate(&model.DownloadRecord{}); err != nil {
		return fmt.Errorf("failed to migrate history table: %w", err)
	}

	logger.Info("history table ready")
	return nil
}

// CloseGormDB 关闭 GORM 数据库连接
func CloseGormDB() error {
	if GormDB == nil {
		return nil
	}

	sqlDB, err := GormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
