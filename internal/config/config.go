// Package config loads runtime settings from the environment and an optional
// .env file.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Presence PresenceConfig
}

// ServerConfig controls the host's websocket hub and LAN advertisement.
type ServerConfig struct {
	Port         int
	Room         string
	Name         string
	Advertise    bool
	WriteTimeout time.Duration
}

// RedisConfig is optional. An empty Addr keeps the document in memory only.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PresenceConfig struct {
	EmitInterval  time.Duration
	SweepInterval time.Duration
	ReactionTTL   time.Duration
}

// Load reads .env files (if any) and then the environment.
func Load(files ...string) *Config {
	if err := godotenv.Load(files...); err != nil {
		log.Println("[Config] No .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "livecanvas"
	}

	return &Config{
		Server: ServerConfig{
			Port:         getInt("LIVECANVAS_PORT", 8888),
			Room:         getEnv("LIVECANVAS_ROOM", "default"),
			Name:         getEnv("LIVECANVAS_NAME", hostname),
			Advertise:    getBool("LIVECANVAS_ADVERTISE", true),
			WriteTimeout: getDuration("WS_WRITE_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("LIVECANVAS_REDIS_ADDR", ""),
			Password: getEnv("LIVECANVAS_REDIS_PASSWORD", ""),
			DB:       getInt("LIVECANVAS_REDIS_DB", 0),
		},
		Presence: PresenceConfig{
			EmitInterval:  getDuration("REACTION_EMIT_INTERVAL", 20*time.Millisecond),
			SweepInterval: getDuration("REACTION_SWEEP_INTERVAL", time.Second),
			ReactionTTL:   getDuration("REACTION_TTL", 4*time.Second),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getDuration accepts Go durations; a bare number is seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if !strings.ContainsAny(value, "nsuµmh") {
			if secs, err := strconv.Atoi(value); err == nil {
				return time.Duration(secs) * time.Second
			}
		}
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
