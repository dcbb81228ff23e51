package cmd

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/xceiver/cmd/container"
	"github.com/ValentinKolb/xceiver/cmd/serve"
	"github.com/ValentinKolb/xceiver/cmd/util"
	"github.com/spf13/cobra"
	"os"
	"os/signal"
	"syscall"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "xceiver",
		Short: "stand-alone container client and datanode",
		Long: fmt.Sprintf(`xceiver (v%s)

A client for the container protocol of a replicated storage pipeline.
Requests are sent to the leader of the pipeline over one multiplexed
stream connection, bounded by a maximum number of outstanding requests.
The serve command starts an in-memory datanode speaking the same protocol.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of xceiver",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("xceiver v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(container.ContainerCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix)"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
// SIGINT and SIGTERM cancel the context of the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
