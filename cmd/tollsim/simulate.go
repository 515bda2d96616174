package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tollsim/internal/admin"
	"tollsim/internal/config"
	"tollsim/internal/logging"
	"tollsim/internal/pricing"
	"tollsim/internal/scenario"
	"tollsim/internal/sim"
)

var (
	simPrintOnly  bool
	simConfigPath string
	simSchemaPath string
	simTick       time.Duration
	simLogFile    string
	simScenario   string
	simScriptPath string
	simStrategy   string
	simModelPath  string
	simAdminAddr  string
	simSeed       uint64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the real-time toll pricing simulator",
	Long:  "simulate starts the tick loop, emitting per-minute snapshots and adjusting the toll on the configured schedule.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(simConfigPath, simSchemaPath)
		if err != nil {
			return err
		}

		writer, cleanup, err := newWriters(simPrintOnly, simLogFile)
		if err != nil {
			return err
		}
		defer cleanup()

		log := logging.New()
		ctx, cancel := context.WithCancel(logging.NewContext(context.Background(), log))
		defer cancel()

		fallback := pricing.NewRuleBased(cfg.Toll, cfg.RevenueTargetHourly)
		var strategy pricing.Strategy
		var agent *pricing.QLearning
		if simStrategy == "qlearning" {
			agent = pricing.NewQLearning(cfg.Toll, newSeedSource(simSeed))
			if simModelPath != "" {
				if err := agent.LoadModel(simModelPath); err != nil {
					log.Warn("could not load pricing model, starting fresh", "path", simModelPath, "err", err)
				}
			}
			strategy = agent
		}
		controller := pricing.NewController(strategy, fallback)

		tickInterval := simTick
		if envTick := os.Getenv("TICK_INTERVAL"); envTick != "" {
			d, err := time.ParseDuration(envTick)
			if err != nil {
				return err
			}
			tickInterval = d
		}

		engine, err := sim.NewEngine(cfg, writer, controller, tickInterval, seedOrNow(simSeed))
		if err != nil {
			return err
		}
		if simScenario != "" {
			if err := engine.SetScenario(simScenario); err != nil {
				return err
			}
		}
		if simScriptPath != "" {
			script, err := scenario.Load(simScriptPath)
			if err != nil {
				return err
			}
			if err := script.Validate(cfg.Scenarios); err != nil {
				return err
			}
			engine.SetScript(script)
		}

		srv := admin.NewServer(engine)
		go func() {
			log.Info("admin API listening", "addr", simAdminAddr)
			if err := srv.Start(ctx, simAdminAddr); err != nil && err != http.ErrServerClosed {
				log.Error("admin server failed", "err", err)
			}
		}()

		go engine.Run(ctx)

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs
		cancel()

		if agent != nil && simModelPath != "" {
			if err := agent.SaveModel(simModelPath); err != nil {
				log.Error("could not save pricing model", "path", simModelPath, "err", err)
			} else {
				states, actions := agent.Stats()
				log.Info("pricing model saved", "path", simModelPath, "states", states, "state_actions", actions)
			}
		}

		log.Info("simulation stopped", "toll_price", engine.TollPrice(), "revenue", engine.Revenue())
		return nil
	},
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print snapshots to STDOUT instead of writing to DB")
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "schemas/simulation.cue", "Path to CUE schema file")
	simulateCmd.Flags().DurationVar(&simTick, "tick", time.Second, "Wall-clock interval per simulated minute (e.g. 500ms, 2s)")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export snapshots (JSONL)")
	simulateCmd.Flags().StringVar(&simScenario, "scenario", "", "Scenario to simulate (defaults to the config's default_scenario)")
	simulateCmd.Flags().StringVar(&simScriptPath, "script", "", "Path to a scenario script YAML")
	simulateCmd.Flags().StringVar(&simStrategy, "strategy", "rule", "Pricing strategy: rule or qlearning")
	simulateCmd.Flags().StringVar(&simModelPath, "model", "", "Path to load/save the Q-learning model (JSON)")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin-addr", ":8080", "Admin API listen address")
	simulateCmd.Flags().Uint64Var(&simSeed, "seed", 0, "Random seed (0 uses the current time)")
}
