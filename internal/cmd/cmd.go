package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/unit_imu/internal/app"
	"github.com/relabs-tech/unit_imu/internal/config"
)

var RootCmd = &cobra.Command{
	Use:   "unit_imu",
	Short: "MPU6886 orientation and rotation events over MQTT",
	Long: `unit_imu drives an MPU6886 6-axis IMU over I2C, classifies which face is up
and how the unit is rotating, and publishes a change event whenever either moves.

Configuration is read from a KEY=VALUE file (--config), then UNIT_IMU_* environment
variables, then command line flags.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	if err := config.InitGlobal(path, cmd.Flags()); err != nil {
		return err
	}
	if config.Get().Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	return nil
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runWithSignals adapts an app entry point to a cobra RunE.
func runWithSignals(run func(context.Context, *config.Config) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		return run(ctx, config.Get())
	}
}

var ProducerCmd = &cobra.Command{
	Use:        "producer",
	SuggestFor: []string{"prod", "run"},
	Short:      "read the IMU and publish samples and change events",
	Example:    `  unit_imu producer --config=/etc/unit_imu.env`,
	RunE:       runWithSignals(app.RunProducer),
}

var ConsoleCmd = &cobra.Command{
	Use:   "console",
	Short: "print samples and events from the broker",
	RunE:  runWithSignals(app.RunConsoleMQTT),
}

var WebCmd = &cobra.Command{
	Use:   "web",
	Short: "serve the latest orientation over HTTP and websocket",
	Long: `web subscribes to the producer topics and serves:
  /api/orientation  latest orientation and rotation events plus tilt
  /api/sample       latest reading
  /ws/events        live change events`,
	RunE: runWithSignals(app.RunWeb),
}

var RegisterDebugCmd = &cobra.Command{
	Use:     "register-debug",
	Aliases: []string{"regs"},
	Short:   "websocket register inspector for the IMU",
	RunE:    runWithSignals(app.RunRegisterDebug),
}

var DisplayCmd = &cobra.Command{
	Use:   "display",
	Short: "show the latest orientation on an SSD1306 OLED",
	RunE:  runWithSignals(app.RunDisplay),
}

var ShellCmd = &cobra.Command{
	Use:   "shell",
	Short: "interactive register and classification shell",
	RunE:  runWithSignals(app.RunShell),
}

var DumpCmd = &cobra.Command{
	Use:     "dump",
	Short:   "print a YAML snapshot of every IMU register",
	Example: `  unit_imu dump --sim > registers.yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return app.RunDump(config.Get(), cmd.OutOrStdout())
	},
}

func getRootCmd() *cobra.Command {
	RootCmd.PersistentFlags().String("config", "", "KEY=VALUE configuration file")
	RootCmd.PersistentFlags().Bool("debug", false, "toggle debug logging")
	RootCmd.PersistentFlags().Bool("sim", false, "use the simulated IMU instead of I2C hardware")

	RootCmd.AddCommand(ProducerCmd, ConsoleCmd, WebCmd, RegisterDebugCmd, DisplayCmd, ShellCmd, DumpCmd)
	return RootCmd
}

func Execute() {
	if err := getRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
