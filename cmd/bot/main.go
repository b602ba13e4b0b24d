package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/volatiq/gotdi/config"
	"github.com/volatiq/gotdi/exchange"
	"github.com/volatiq/gotdi/logger"
	"github.com/volatiq/gotdi/strategy"
	"github.com/volatiq/gotdi/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	runOnStart := flag.Bool("run-on-start", false, "run one cycle per symbol immediately instead of waiting for the first tick")
	flag.Parse()

	log, err := logger.NewZapLogger()
	if err != nil {
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("config_load_failed", logger.Err(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("config_invalid", logger.Err(err))
		os.Exit(1)
	}

	var client exchange.Client
	if cfg.Exchange.Paper {
		log.Info("paper_mode_enabled")
		client = exchange.NewPaperClient(10_000)
	} else {
		client = exchange.NewBinanceClient(cfg.Exchange.BaseURL, cfg.Exchange.APIKey, cfg.Exchange.APISecret)
	}

	strategies := make(map[string]*strategy.TDIStrategy, len(cfg.Symbols))
	for _, symbol := range cfg.Symbols {
		st, err := strategy.NewTDIStrategy(symbol, cfg.Strategy, client, log)
		if err != nil {
			log.Error("strategy_init_failed", logger.String("symbol", symbol), logger.Err(err))
			os.Exit(1)
		}
		strategies[symbol] = st
	}

	// Six-field cron spec (seconds included), one cycle per symbol per tick.
	scheduler := cron.New(cron.WithSeconds())
	for symbol, st := range strategies {
		symbol, st := symbol, st
		_, err := scheduler.AddFunc(cfg.Schedule.CycleCron, func() {
			res := st.RunCycle()
			log.Info("cycle_complete",
				logger.String("symbol", symbol),
				logger.String("result", string(res)),
			)
		})
		if err != nil {
			log.Error("schedule_failed", logger.String("symbol", symbol), logger.Err(err))
			os.Exit(1)
		}
	}
	scheduler.Start()
	if *runOnStart {
		go func() {
			for symbol, st := range strategies {
				res := st.RunCycle()
				log.Info("cycle_complete",
					logger.String("symbol", symbol),
					logger.String("result", string(res)),
				)
			}
		}()
	}
	log.Info("scheduler_started",
		logger.String("cron", cfg.Schedule.CycleCron),
		logger.Int("symbols", len(strategies)),
	)

	go func() {
		srv := web.NewServer(strategies, log)
		if err := srv.Run(cfg.Web.ListenAddr); err != nil {
			log.Error("dashboard_stopped", logger.Err(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting_down")
	ctx := scheduler.Stop()
	<-ctx.Done()
	log.Info("stopped")
}
