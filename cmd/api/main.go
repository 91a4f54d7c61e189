package main

import (
	"context"
	"fmt"

	"broker-backend/internal/app"
	"broker-backend/internal/config"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var fiberApp *fiber.App
var appCfg *config.Config
var startupDB *gorm.DB

func init() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load: " + err.Error())
	}
	appCfg = cfg
	fiberApp, startupDB, err = app.CreateApp(cfg)
	if err != nil {
		panic("app create: " + err.Error())
	}
}

func main() {
	if startupDB != nil {
		sqlDB, err := startupDB.DB()
		if err != nil {
			panic("postgres: get DB: " + err.Error())
		}
		if err := sqlDB.PingContext(context.Background()); err != nil {
			panic("postgres connection failed: " + err.Error())
		}
		fmt.Println("Postgres connected")
	}
	fmt.Printf("Server running at http://localhost:%s\n", appCfg.Port)
	fmt.Printf("Health check: http://localhost:%s/health\n", appCfg.Port)

	if err := fiberApp.Listen(":" + appCfg.Port); err != nil {
		panic(err)
	}
}
