package main

import (
	"flag"
	"log"
	"os"

	"github.com/lusya00/thesis-frontend-sub000/internal/app"
	"github.com/lusya00/thesis-frontend-sub000/internal/config"
	"github.com/lusya00/thesis-frontend-sub000/internal/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("HOMESTAY_CONFIG"), "path to the YAML config file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l, err := logger.New(logger.Config{Out: os.Stdout, Level: conf.Log.Level, Format: conf.Log.Format})
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	var exitCode int

	if err := app.Run(l, conf); err != nil {
		l.LogErrorf("Failed to run app: %v", err.Error())

		exitCode = 1
	}

	os.Exit(exitCode)
}
