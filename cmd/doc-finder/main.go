package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kamalkrbh/doc-finder/internal/config"
	"github.com/kamalkrbh/doc-finder/internal/embedding"
	"github.com/kamalkrbh/doc-finder/internal/embedding/remote"
	"github.com/kamalkrbh/doc-finder/internal/embedding/tfidf"
	"github.com/kamalkrbh/doc-finder/internal/index"
	"github.com/kamalkrbh/doc-finder/internal/llm"
	"github.com/kamalkrbh/doc-finder/internal/loader"
	"github.com/kamalkrbh/doc-finder/internal/logger"
	"github.com/kamalkrbh/doc-finder/internal/service"
	"github.com/kamalkrbh/doc-finder/internal/summarizer"
	"github.com/kamalkrbh/doc-finder/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var forceRebuild bool
	flag.StringVar(&cfgPath, "config", "config.yaml", "Path to YAML config file (defaults apply if missing)")
	flag.BoolVar(&forceRebuild, "rebuild", false, "Force an index rebuild without prompting")
	flag.Parse()

	log, err := logger.New()
	if err != nil {
		stdlog.Fatalf("failed to initialize logger: %v", err)
	}
	defer log.Sync()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}

	for _, dir := range []string{cfg.PDFDirectory, cfg.IndexDirectory} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal("failed to create directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	var emb embedding.Embedder
	switch cfg.Embedder.Type {
	case "tfidf", "":
		emb = tfidf.NewEmbedder()
	case "remote":
		client, err := remote.NewClient(remote.Config{
			BaseURL:   cfg.Embedder.Remote.BaseURL,
			APIKeyEnv: cfg.Embedder.Remote.APIKeyEnv,
			Model:     cfg.Embedder.Remote.Model,
			Timeout:   time.Duration(cfg.Embedder.Remote.TimeoutSecs) * time.Second,
		})
		if err != nil {
			log.Fatal("remote embedder init failed", zap.Error(err))
		}
		emb = client
	default:
		log.Fatal("unknown embedder type", zap.String("type", cfg.Embedder.Type))
	}

	completion, err := llm.New(cfg.LLM)
	if err != nil {
		log.Fatal("completion backend init failed", zap.Error(err))
	}

	ldr := loader.New(summarizer.NewFrequencySummarizer(), log)
	eng := index.New(emb, log)
	loc := index.DefaultLocation(cfg.IndexDirectory)
	ctx := context.Background()

	ready := false
	switch {
	case forceRebuild:
		ready = eng.Rebuild(ctx, cfg.PDFDirectory, loc, ldr)
	case eng.Exists(loc):
		if promptRebuild() {
			ready = eng.Rebuild(ctx, cfg.PDFDirectory, loc, ldr)
		} else if err := eng.Load(loc); err != nil {
			log.Fatal("failed to load existing index", zap.Error(err))
		} else {
			ready = true
		}
	default:
		ready = eng.Setup(ctx, cfg.PDFDirectory, loc, ldr)
	}
	if !ready {
		log.Fatal("index is not ready, cannot start query loop")
	}

	qe := service.New(eng, completion, cfg.SearchK,
		time.Duration(cfg.LLM.TimeoutSecs)*time.Second, log)

	if _, err := tea.NewProgram(tui.New(qe), tea.WithAltScreen()).Run(); err != nil {
		log.Fatal("query loop terminated abnormally", zap.Error(err))
	}
}

// promptRebuild asks whether to reindex the current PDFs. Anything but
// an explicit yes means no.
func promptRebuild() bool {
	fmt.Print("Rebuild index with current PDFs? (yes/[no]): ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	choice := strings.ToLower(strings.TrimSpace(line))
	return choice == "yes" || choice == "y"
}
