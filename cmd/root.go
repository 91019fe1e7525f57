package cmd

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/inference-sim/cloudlet-sim/sim"
	"github.com/inference-sim/cloudlet-sim/sim/testbed"
)

var (
	configPath     string  // YAML testbed description; empty uses the defaults
	seed           int64   // Master seed for stochastic utilization and random placement
	horizon        float64 // Simulated time at which the run stops (seconds)
	keepAlive      bool    // Keep Vms occupied with minimal cloudlets between workloads
	logLevel       string  // Log verbosity level
	statusInterval float64 // Vm status log period (seconds); 0 disables
	traceLevel     string  // Trace verbosity: none, placements or events
	showKeepAlive  bool    // List keep-alive cloudlets in the report
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "cloudlet-sim",
	Short: "Discrete-event simulator for cloud hosts, Vms and cloudlets",
}

// runCmd builds the testbed from the config and flags and runs it
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the testbed simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := resolveConfig(cmd.Flags())
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		logrus.Infof("Starting simulation with %d hosts, %d vms, %d cloudlets, horizon=%.1fs, seed=%d, keep-alive=%t",
			cfg.Host.Num, cfg.Vm.Num, cfg.Cloudlet.Num, cfg.Simulation.TerminateAt, cfg.Simulation.Seed, cfg.KeepAlive.Enabled)
		startTime := time.Now()

		tb, err := testbed.New(cfg, nil, nil)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		res, err := tb.Run()
		if err != nil {
			logrus.Fatalf("Simulation aborted: %v", err)
		}
		if err := tb.WriteReport(os.Stdout, res, showKeepAlive); err != nil {
			logrus.Fatalf("Writing report: %v", err)
		}

		logrus.Infof("Simulation complete in %v.", time.Since(startTime))
	},
}

// configCmd prints the effective configuration as YAML
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective testbed configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveConfig(cmd.Flags())
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		out, err := marshalConfig(cfg)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		_, _ = cmd.OutOrStdout().Write(out)
	},
}

// resolveConfig loads the config file, then applies only the flags the user
// set explicitly so file values are not clobbered by flag defaults.
func resolveConfig(flags *pflag.FlagSet) (sim.Config, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return sim.Config{}, err
	}
	if flags.Changed("seed") {
		cfg.Simulation.Seed = seed
	}
	if flags.Changed("horizon") {
		cfg.Simulation.TerminateAt = horizon
	}
	if flags.Changed("keep-alive") {
		cfg.KeepAlive.Enabled = keepAlive
	}
	if flags.Changed("status-interval") {
		cfg.Report.StatusInterval = statusInterval
	}
	if flags.Changed("trace") {
		cfg.Simulation.Trace = traceLevel
	}
	return cfg, nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func registerConfigFlags(fs *pflag.FlagSet) {
	fs.StringVar(&configPath, "config", "", "Path to a YAML testbed config (defaults to the built-in testbed)")
	fs.Int64Var(&seed, "seed", 42, "Master seed for stochastic utilization and random placement")
	fs.Float64Var(&horizon, "horizon", 70, "Simulated time at which the run stops (seconds)")
	fs.BoolVar(&keepAlive, "keep-alive", true, "Keep Vms occupied with minimal cloudlets between workloads")
	fs.Float64Var(&statusInterval, "status-interval", 0, "Log Vm status every N simulated seconds (0 disables)")
	fs.StringVar(&traceLevel, "trace", "none", "Trace level (none, placements, events)")
}

// init sets up CLI flags and subcommands
func init() {
	registerConfigFlags(runCmd.Flags())
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().BoolVar(&showKeepAlive, "show-keep-alive", false, "List keep-alive cloudlets in the cloudlet table")

	registerConfigFlags(configCmd.Flags())

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
}
