package container

import (
	"github.com/ValentinKolb/xceiver/cmd/util"
	"github.com/ValentinKolb/xceiver/rpc/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	xceiverClient *client.StandaloneClient

	// ContainerCommands represents the container command group
	ContainerCommands = &cobra.Command{
		Use:                "container",
		Short:              "Perform container operations on the leader of a pipeline",
		PersistentPreRunE:  setupClient,
		PersistentPostRunE: closeClient,
	}
)

func init() {
	// Add pipeline and client flags to the container command
	util.SetupClientFlags(ContainerCommands)

	// Add subcommands
	ContainerCommands.AddCommand(echoCmd)
	ContainerCommands.AddCommand(putCmd)
	ContainerCommands.AddCommand(getCmd)
	ContainerCommands.AddCommand(delCmd)
	ContainerCommands.AddCommand(listCmd)
	ContainerCommands.AddCommand(perfTestCmd)
}

// setupClient creates the stand-alone client and connects it to the leader
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := util.InitLogging(); err != nil {
		return err
	}

	p, err := util.GetPipeline()
	if err != nil {
		return err
	}

	// Get serializer and connector
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	connector, err := util.GetConnector()
	if err != nil {
		return err
	}

	xceiverClient, err = client.NewStandaloneClient(
		p,
		*util.GetClientConfig(),
		connector,
		s,
	)
	if err != nil {
		return err
	}

	return util.ConnectWithRetry(cmd.Context(), xceiverClient, viper.GetInt("wait"))
}

// closeClient closes the client after the command finished
func closeClient(_ *cobra.Command, _ []string) error {
	if xceiverClient == nil {
		return nil
	}
	return xceiverClient.Close()
}
