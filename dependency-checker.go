package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"dependency-checker/types/config"
)

const version = "v1.0.0"

func parseConfigFile(path string) (config.Config, error) {
	log.Print("parseConfigFile:: Enter()")

	checkerConfig := config.Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &checkerConfig); err != nil {
			return config.Config{}, fmt.Errorf("error parsing config file: %v", err)
		}
	case errors.Is(err, os.ErrNotExist):
		log.Printf("parseConfigFile:: %s not found, using defaults", path)
	default:
		return config.Config{}, fmt.Errorf("error reading config file: %v", err)
	}

	applyEnvOverrides(&checkerConfig)

	if checkerConfig.Settings.LogLevel == "" ||
		strings.TrimSpace(checkerConfig.Config.ScancodeCommand) == "" ||
		checkerConfig.Config.NuGetEndpoint == "" ||
		checkerConfig.Config.PyPIEndpoint == "" ||
		checkerConfig.Settings.RequestTimeout <= 0 ||
		len(checkerConfig.Config.BinaryExtensions) == 0 {
		return config.Config{}, errors.New("config validation failed: missing required fields")
	}

	log.Print("parseConfigFile:: Exit()")
	return checkerConfig, nil
}

// applyEnvOverrides lets the environment (or a .env file) override the
// values most likely to differ between machines.
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("DEPCHECK_SCANCODE_PATH"); v != "" {
		cfg.Config.ScancodeCommand = v
	}
	if v := os.Getenv("DEPCHECK_LOG_LEVEL"); v != "" {
		cfg.Settings.LogLevel = v
	}
	if v := os.Getenv("DEPCHECK_NUGET_ENDPOINT"); v != "" {
		cfg.Config.NuGetEndpoint = v
	}
	if v := os.Getenv("DEPCHECK_PYPI_ENDPOINT"); v != "" {
		cfg.Config.PyPIEndpoint = v
	}
}

func loadEnvFiles() {
	// Missing files are fine; they only help local runs.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")
}

func setLogLevel(level string) {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.Printf("setLogLevel:: unknown log level %q, keeping %s", level, log.GetLevel())
		return
	}
	log.SetLevel(parsed)
}

func init() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:          true,
		ForceColors:            true,
		DisableLevelTruncation: true,
		TimestampFormat:        "2006-01-02 15:04:05.000",
	})
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
