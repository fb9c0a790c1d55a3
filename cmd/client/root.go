package client

import (
	"github.com/ValentinKolb/dSock/cmd/util"
	"github.com/ValentinKolb/dSock/rpc/common"
	"github.com/ValentinKolb/dSock/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	log    = logger.GetLogger(common.LoggerCLI)
	socket transport.ISocket

	// ClientCommands represents the client command group
	ClientCommands = &cobra.Command{
		Use:                "client",
		Short:              "Send messages to a dSock server",
		PersistentPreRunE:  setupClient,
		PersistentPostRunE: stopClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common socket flags to the client commands
	util.SetupSocketFlags(ClientCommands)

	// Add subcommands
	ClientCommands.AddCommand(sendCmd)
	ClientCommands.AddCommand(perfTestCmd)
}

// setupClient creates the client socket and starts connecting in the background.
// Messages sent before the connection is established are queued.
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	s, err := util.GetSocket()
	if err != nil {
		return err
	}

	s.OnError(func(err error) {
		log.Warningf("Socket error: %v", err)
	})
	s.OnConnect(func() {
		log.Debugf("Connected to %s", s.Addr())
	})

	if err := s.StartClient(nil); err != nil {
		return err
	}
	socket = s
	return nil
}

// stopClient closes the client socket
func stopClient(_ *cobra.Command, _ []string) error {
	if socket == nil {
		return nil
	}
	return util.StopSocket(socket, viper.GetDuration("timeout"))
}
