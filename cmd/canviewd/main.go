package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"example.com/canview/internal/common"
	"example.com/canview/internal/report"
	"example.com/canview/internal/rows"
	"example.com/canview/internal/server"
)

type logConfig struct {
	Directory  string `yaml:"directory"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
}

type config struct {
	Port            int           `yaml:"port"`
	ConfigDir       string        `yaml:"configDir"`
	ParseServiceURL string        `yaml:"parseServiceURL"`
	RowCap          int           `yaml:"rowCap"`
	StorageDir      string        `yaml:"storageDir"`
	Lang            string        `yaml:"lang"`
	PDFFont         string        `yaml:"pdfFont"`
	SessionTTL      time.Duration `yaml:"sessionTTL"`
	StatusInterval  time.Duration `yaml:"statusInterval"`
	Logs            logConfig     `yaml:"logs"`
}

func loadConfig(path string) (config, error) {
	var cfg config
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return cfg, err
	}
	baseDir := filepath.Dir(path)
	resolvePath := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" {
			return ""
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		candidate := filepath.Clean(filepath.Join(baseDir, p))
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		return filepath.Clean(p)
	}
	if cfg.Port == 0 {
		cfg.Port = 8081
	}
	cfg.ConfigDir = resolvePath(cfg.ConfigDir)
	if cfg.ConfigDir == "" {
		cfg.ConfigDir = resolvePath("protocols")
	}
	if cfg.ParseServiceURL == "" {
		cfg.ParseServiceURL = "http://localhost:8080"
	}
	if cfg.RowCap <= 0 {
		cfg.RowCap = rows.DefaultRowCap
	}
	if cfg.StorageDir == "" {
		cfg.StorageDir = filepath.Join(".", "data")
	}
	if cfg.Lang == "" {
		cfg.Lang = string(report.LangEnglish)
	}
	if _, err := report.ParseLanguage(cfg.Lang); err != nil {
		return cfg, fmt.Errorf("lang: %w", err)
	}
	cfg.PDFFont = resolvePath(cfg.PDFFont)
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = server.DefaultSessionTTL
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = 15 * time.Minute
	}
	if cfg.Logs.Directory == "" {
		cfg.Logs.Directory = filepath.Join(cfg.StorageDir, "logs")
	}
	if cfg.Logs.MaxSizeMB <= 0 {
		cfg.Logs.MaxSizeMB = 25
	}
	if cfg.Logs.MaxAgeDays <= 0 {
		cfg.Logs.MaxAgeDays = 7
	}
	if cfg.Logs.MaxBackups <= 0 {
		cfg.Logs.MaxBackups = 5
	}
	return cfg, nil
}

func setupLogging(cfg config) error {
	if err := os.MkdirAll(cfg.Logs.Directory, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	logFile := filepath.Join(cfg.Logs.Directory, "canviewd.log")
	rotator := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    cfg.Logs.MaxSizeMB,
		MaxAge:     cfg.Logs.MaxAgeDays,
		MaxBackups: cfg.Logs.MaxBackups,
		Compress:   cfg.Logs.Compress,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return nil
}

func main() {
	configPath := flag.String("config", "config/canviewd.yaml", "path to configuration file")
	addr := flag.String("addr", "", "listen address (overrides config port)")
	readTimeout := flag.Duration("read-timeout", 60*time.Second, "HTTP read timeout")
	writeTimeout := flag.Duration("write-timeout", 120*time.Second, "HTTP write timeout")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
		log.Fatalf("storage dir: %v", err)
	}
	if err := setupLogging(cfg); err != nil {
		log.Fatalf("setup logging: %v", err)
	}
	lang, _ := report.ParseLanguage(cfg.Lang)
	listenAddr := fmt.Sprintf(":%d", cfg.Port)
	if *addr != "" {
		listenAddr = *addr
	}

	metrics := common.NewMetrics()
	srv, err := server.NewServer(server.Options{
		StorageDir:      cfg.StorageDir,
		ConfigDir:       cfg.ConfigDir,
		ParseServiceURL: cfg.ParseServiceURL,
		RowCap:          cfg.RowCap,
		Lang:            lang,
		FontPath:        cfg.PDFFont,
		SessionTTL:      cfg.SessionTTL,
		Metrics:         metrics,
	})
	if err != nil {
		log.Fatalf("server init: %v", err)
	}
	defer srv.Close()

	router, err := server.NewRouter(srv)
	if err != nil {
		log.Fatalf("router init: %v", err)
	}
	httpServer := &http.Server{
		Addr:         listenAddr,
		Handler:      router,
		ReadTimeout:  *readTimeout,
		WriteTimeout: *writeTimeout,
	}
	stopStatus := common.StartStatusPrinter(log.Writer(), metrics, cfg.StatusInterval)
	defer stopStatus()

	log.Printf("canviewd listening on %s (config %s, parse service %s)", listenAddr, cfg.ConfigDir, cfg.ParseServiceURL)
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	for sig := range signals {
		if sig == syscall.SIGHUP {
			srv.ReloadConfig()
			log.Printf("protocol configuration reloaded")
			continue
		}
		break
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("canviewd stopped")
}
