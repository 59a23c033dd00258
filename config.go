package main

import "os"

type Config struct {
	HTTPPort      string `yaml:"httpPort"`
	JWTSecret     string `yaml:"jwtSecret"`
	StorageDriver string `yaml:"storageDriver"` // memory or postgres
	DBUsername    string `yaml:"dbUsername"`
	DBPassword    string `yaml:"dbPassword"`
	DBPort        string `yaml:"dbPort"`
	DBHost        string `yaml:"dbHost"`
	DBName        string `yaml:"dbName"`
	BinanceAPIKey string `yaml:"binanceApiKey"`
	BinanceSecret string `yaml:"binanceSecretKey"`
}

// applyEnv lets deployment secrets override the yaml file.
func (c *Config) applyEnv() {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		c.BinanceAPIKey = v
	}
	if v := os.Getenv("BINANCE_SECRET_KEY"); v != "" {
		c.BinanceSecret = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.DBPassword = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		c.HTTPPort = v
	}
}
