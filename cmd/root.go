package cmd

import (
	"fmt"
	"github.com/ValentinKolb/dSock/cmd/client"
	"github.com/ValentinKolb/dSock/cmd/keygen"
	"github.com/ValentinKolb/dSock/cmd/serve"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dsock",
		Short: "framed JSON message socket",
		Long: fmt.Sprintf(`dSock (v%s)

A message socket library written in Go. Length prefixed JSON envelopes
are exchanged over TCP, TLS or unix sockets with request/response
correlation, timeouts and automatic reconnection.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dSock",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dSock v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(client.ClientCommands)
	RootCmd.AddCommand(keygen.KeygenCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
