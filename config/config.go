package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port string
	}
	Database struct {
		DSN string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	JWT struct {
		Secret string
	}
	Game struct {
		BasePoint      int
		EnableTribute  bool
		DoubleTribute  bool
		TributeTimeout time.Duration
		BotDelay       time.Duration
		GraceDelay     time.Duration
	}
	Matchmaker struct {
		PlayerTTL time.Duration
	}
}

var C Config

func Load() {
	viper.SetConfigFile("config/config.yaml")

	viper.SetDefault("game.basepoint", 1)
	viper.SetDefault("game.enabletribute", true)
	viper.SetDefault("game.doubletribute", false)
	viper.SetDefault("game.tributetimeout", "15s")
	viper.SetDefault("game.botdelay", "800ms")
	viper.SetDefault("game.gracedelay", "30s")
	viper.SetDefault("matchmaker.playerttl", "60s")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Failed to read config: %v", err)
	}
	if err := viper.Unmarshal(&C); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}
}
