// Command 5250Web serves a display file with a pageable subfile to browsers
// and, optionally, to tn3270 terminals.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/jnnngs/5250Web/internal/config"
	"github.com/jnnngs/5250Web/internal/host"
	"github.com/jnnngs/5250Web/internal/sampleapps"
	"github.com/jnnngs/5250Web/internal/server"
)

func main() {
	baseDir := resolveBaseDir()
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("5250Web crashed during startup: %v", r)
			log.Printf("%s\n%s", msg, debug.Stack())
			showFatalError(msg)
		}
	}()

	cfg := loadConfig(baseDir)
	logFile, err := openStartupLog(baseDir, cfg.LogFile)
	if err == nil {
		defer logFile.Close()
		log.SetOutput(logFile)
	}

	base, err := loadDataset(cfg.Dataset)
	if err != nil {
		showFatalError(err.Error())
		return
	}
	app, err := server.NewApp(cfg, base)
	if err != nil {
		showFatalError(err.Error())
		return
	}

	if cfg.TN3270.Enabled {
		listing, err := sampleapps.StartServer(cfg.TN3270.Address, cfg.Subfile.PageSize, func() host.Host {
			return base.Clone()
		})
		if err != nil {
			log.Printf("Warning: %v", err)
		} else {
			log.Printf("Serving tn3270 listing on %s", listing.Addr())
			defer listing.Stop()
		}
	}

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: app.Router(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Shutdown failed: %v", err)
		}
	}()

	log.Printf("Starting server on %s", cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("Server failed: %v", err)
		showFatalError(fmt.Sprintf("5250Web failed to start. %v", err))
	}
}

func loadConfig(baseDir string) *config.Config {
	envPath := filepath.Join(baseDir, ".env")
	if err := config.EnsureDotEnv(envPath); err != nil {
		log.Printf("Warning: could not ensure .env file: %v", err)
	}
	if err := config.LoadDotEnv(envPath); err != nil {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	configPath := filepath.Join(baseDir, "webapp", "WEB-INF", "5250Web-config.xml")
	if !fileExists(configPath) {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "webapp", "WEB-INF", "5250Web-config.xml")
			if fileExists(fallback) {
				configPath = fallback
			}
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Warning: Could not load config: %v", err)
		cfg = config.Defaults()
	}
	if err := config.ApplyEnv(cfg); err != nil {
		log.Printf("Warning: %v", err)
	}
	return cfg
}

func loadDataset(path string) (*host.Dataset, error) {
	if path == "" {
		return host.DefaultDataset()
	}
	return host.LoadDataset(path)
}

func resolveBaseDir() string {
	if exe, err := os.Executable(); err == nil {
		if dir := filepath.Dir(exe); dir != "" {
			return dir
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return "."
}

func openStartupLog(baseDir, path string) (*os.File, error) {
	if path == "" {
		path = filepath.Join(baseDir, "5250Web.log")
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Printf("Starting 5250Web from %s", baseDir)
	return file, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func showFatalError(message string) {
	fmt.Fprintf(os.Stderr, "5250Web fatal error: %s\n", message)
}
