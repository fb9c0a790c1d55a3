package client

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/spf13/cobra"
	"strings"
)

var (
	sendCmd = &cobra.Command{
		Use:   "send [payload]",
		Short: "Sends a payload and prints the response",
		Long:  "Sends a payload and prints the response. Valid JSON is sent as is, everything else is sent as a JSON string.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := socket.Request(context.Background(), parsePayload(strings.Join(args, " ")))
			if err != nil {
				return err
			}
			fmt.Println(string(resp.Data))
			return nil
		},
	}
)

// parsePayload returns the raw JSON if the argument is valid JSON, otherwise the argument as string
func parsePayload(arg string) any {
	if json.Valid([]byte(arg)) {
		return json.RawMessage(arg)
	}
	return arg
}
