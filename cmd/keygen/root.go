package keygen

import (
	"fmt"
	"github.com/ValentinKolb/dSock/lib/keygen"
	"github.com/spf13/cobra"
)

// KeygenCmd writes a self-signed certificate and its private key
var KeygenCmd = &cobra.Command{
	Use:   "keygen [cert-path] [key-path]",
	Short: "Generate a self-signed TLS certificate and private key",
	Long: `Generate a self-signed RSA certificate (PEM) and the matching private key (PEM).
The certificate is valid for localhost and can be used as server certificate, client certificate and CA.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := keygen.GenerateKeys(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("certificate written to %s\nprivate key written to %s\n", args[0], args[1])
		return nil
	},
}
