// Command bingpaperd runs the wallpaper daemon in the foreground. The
// bingpaper CLI offers the same runtime via `bingpaper daemon run` plus
// detached start/stop orchestration.
package main

import (
	"context"
	"flag"
	"log"

	"bingpaper/internal/config"
	"bingpaper/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	logLevel := flag.String("log-level", "", "override the configured log level")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{LogLevel: *logLevel}); err != nil {
		log.Fatalf("bingpaperd: %v", err)
	}
}
