package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"journeycal/internal/config"
	"journeycal/internal/extract"
	"journeycal/internal/ics"
	appLog "journeycal/internal/log"
	"journeycal/internal/planner"
	"journeycal/internal/store"
	"journeycal/internal/subscribe"
	"journeycal/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	envFile    string
	refreshNow bool
}

func main() {
	flags := parseFlags()

	// A missing .env is normal in production.
	if err := godotenv.Load(flags.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		appLog.Error("failed to load env file", err, "path", flags.envFile)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		conf.LLM.APIKey = key
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("journeycal starting", "version", "0.1.0")
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"data_dir", conf.DataDir,
		"refresh", conf.RefreshCron,
		"subscriptions", len(conf.Subscriptions),
		"llm_model", conf.LLM.Model,
		"llm_key_set", conf.LLM.APIKey != "",
		"basic_auth", conf.BasicAuth != nil,
	)

	loc := resolveLocationOrLocal(conf.Timezone)

	st, err := store.Open(conf.DatabasePath())
	if err != nil {
		appLog.Error("failed to open store", err, "path", conf.DatabasePath())
		os.Exit(1)
	}
	defer st.Close()

	inbox := planner.NewInbox()
	pl := planner.New(st, inbox, conf.RecurrenceDefaultMonths)

	extractor := extract.NewExtractor(extract.NewGeminiClient(extract.GeminiConfig{
		Endpoint: conf.LLM.Endpoint,
		Model:    conf.LLM.Model,
		APIKey:   conf.LLM.APIKey,
	}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var refresher *subscribe.Refresher
	if len(conf.Subscriptions) > 0 {
		refresher = subscribe.New(conf, ics.NewFetcher(conf.CacheDir(), nil), inbox, loc)
		if err := refresher.Start(ctx); err != nil {
			appLog.Error("failed to schedule subscription refresh", err)
			os.Exit(1)
		}
		defer refresher.Stop()

		if flags.refreshNow {
			go func() {
				if _, err := refresher.RunOnce(ctx); err != nil {
					appLog.Error("initial subscription refresh had failures", err)
				}
			}()
		}
	}

	srv := web.NewServer(conf, web.Deps{
		Store:     st,
		Planner:   pl,
		Extractor: extractor,
		Refresher: refresher,
		Location:  loc,
	})
	if err := srv.Serve(ctx); err != nil {
		appLog.Error("http server failed", err)
		os.Exit(1)
	}

	appLog.Info("journeycal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.envFile, "env", ".env", "Optional dotenv file holding GEMINI_API_KEY")
	flag.BoolVar(&cfg.refreshNow, "refresh-now", true, "Refresh subscriptions once at startup")

	flag.Parse()

	return cfg
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" || name == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}
