// cmd/root.go
package cmd

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ispd-go/ispd-go/internal/errs"
	"github.com/ispd-go/ispd-go/internal/loader"
	"github.com/ispd-go/ispd-go/internal/report"
)

var (
	machineAmount uint32
	taskAmount    uint32
	modelFile     string
	routesFile    string
	seed          int64
	horizon       float64
	lookahead     float64
	logLevel      string
	outDir        string
	configFile    string
)

var rootCmd = &cobra.Command{
	Use:   "ispd-go",
	Short: "Parallel discrete-event simulator for cloud/cluster workload execution",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation to completion and write node/global reports",
	Run: func(cmd *cobra.Command, args []string) {
		if configFile != "" {
			applyRunConfig(loadRunConfig(configFile))
		}

		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
		logrus.Infof("Starting simulation: machines=%d tasks=%d horizon=%.2f lookahead=%.4f seed=%d",
			machineAmount, taskAmount, horizon, lookahead, seed)

		modelF, err := os.Open(modelFile)
		if err != nil {
			logrus.Fatalf("Failed to open model file: %v", err)
		}
		defer modelF.Close()

		routesF, err := os.Open(routesFile)
		if err != nil {
			logrus.Fatalf("Failed to open routes file: %v", err)
		}
		defer routesF.Close()

		sim, err := loader.Load(modelF, routesF, lookahead, seed)
		if err != nil {
			logrus.Fatalf("Failed to load model: %v", err)
		}
		warnOnAmountMismatch(sim)

		code := runSimulation(sim)
		if code == 0 {
			logrus.Info("Simulation complete.")
		}
		os.Exit(code)
	},
}

// runSimulation drives the kernel to horizon and writes reports, recovering
// from the fail-fast panics this core raises (ModelMismatch, NoRoute,
// PolicyViolation, LookaheadViolation, or any other panic, such as a
// negative-delay kernel error) and mapping them to the process's exit code.
// An event addressed to an unregistered Lpid does not panic: the kernel
// logs and drops it.
func runSimulation(sim *loader.Simulation) (code int) {
	defer func() {
		if r := recover(); r != nil {
			code = exitCodeFor(r)
			logrus.Errorf("Simulation aborted: %v", r)
		}
	}()

	sim.Kernel.InitAll()
	logrus.Debug("All LPs initialized.")

	sim.Kernel.Run(horizon)
	logrus.Debugf("Kernel drained event queue up to horizon %.2f.", horizon)

	sim.Kernel.FinishAll()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		logrus.Fatalf("Failed to create output directory: %v", err)
	}

	nodes := report.BuildNodeEntries(sim)
	if err := report.WriteNodeReport(outDir, 0, nodes); err != nil {
		logrus.Fatalf("Failed to write node report: %v", err)
	}

	global := report.BuildGlobalReport(sim, horizon)
	if err := report.WriteGlobalReport(outDir, global); err != nil {
		logrus.Fatalf("Failed to write global report: %v", err)
	}
	return 0
}

func exitCodeFor(recovered any) int {
	err, ok := recovered.(error)
	if !ok {
		return 1
	}
	switch {
	case errors.Is(err, errs.ErrModelMismatch):
		return 2
	case errors.Is(err, errs.ErrNoRoute):
		return 3
	case errors.Is(err, errs.ErrPolicyViolation):
		return 4
	case errors.Is(err, errs.ErrLookaheadViolation):
		return 5
	default:
		return 1
	}
}

// warnOnAmountMismatch logs, rather than aborts, when --machine-amount or
// --task-amount disagree with what the model file actually declares: the
// model file is authoritative, these flags are an informational
// cross-check passed through from the caller.
func warnOnAmountMismatch(sim *loader.Simulation) {
	if machineAmount != 0 && uint32(len(sim.Machines)) != machineAmount {
		logrus.Warnf("--machine-amount=%d but model file declares %d machines", machineAmount, len(sim.Machines))
	}
	if taskAmount == 0 {
		return
	}
	var declared uint64
	for _, m := range sim.Masters {
		declared += m.Workload.Remaining()
	}
	for _, vm := range sim.Vmms {
		declared += vm.Workload.Remaining()
	}
	if declared != uint64(taskAmount) {
		logrus.Warnf("--task-amount=%d but model file declares %d remaining tasks", taskAmount, declared)
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().Uint32Var(&machineAmount, "machine-amount", 0, "Expected number of machines (cross-checked against the model file)")
	runCmd.Flags().Uint32Var(&taskAmount, "task-amount", 0, "Expected total number of tasks (cross-checked against the model file)")
	runCmd.Flags().StringVar(&modelFile, "model", "model.json", "Path to the JSON model file")
	runCmd.Flags().StringVar(&routesFile, "routes", "routes.txt", "Path to the routing table file")
	runCmd.Flags().Int64Var(&seed, "seed", 1, "Master RNG seed")
	runCmd.Flags().Float64Var(&horizon, "horizon", 1000.0, "Simulation horizon (stop processing events past this timestamp)")
	runCmd.Flags().Float64Var(&lookahead, "lookahead", 0.001, "Lookahead epsilon enforced on master sends (Generate self-schedules and outbound tasks)")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&outDir, "out-dir", ".", "Directory to write node_0.json and report.json into")
	runCmd.Flags().StringVar(&configFile, "config", "", "Optional YAML file supplying these flags")

	rootCmd.AddCommand(runCmd)
}
