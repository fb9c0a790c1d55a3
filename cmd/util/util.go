package util

import (
	"fmt"
	"github.com/ValentinKolb/dSock/rpc/common"
	"github.com/ValentinKolb/dSock/rpc/transport"
	"github.com/ValentinKolb/dSock/rpc/transport/tcp"
	"github.com/ValentinKolb/dSock/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupSocketFlags adds the socket connection flags to a command
func SetupSocketFlags(cmd *cobra.Command) {
	key := "transport"
	cmd.PersistentFlags().String(key, "tcp", WrapString("transport to use (tcp, unix)"))

	key = "endpoint"
	cmd.PersistentFlags().String(key, "127.0.0.1:4000", WrapString("The address of the socket: host:port for tcp, a file path for unix"))

	key = "timeout"
	cmd.PersistentFlags().Duration(key, common.DefaultTimeout, WrapString("Time after which a request without response fails"))

	key = "reconnect-interval"
	cmd.PersistentFlags().Duration(key, common.DefaultReconnectInterval, WrapString("Initial delay between reconnection attempts"))

	key = "reconnect-interval-max"
	cmd.PersistentFlags().Duration(key, common.DefaultReconnectIntervalMax, WrapString("Upper bound of the delay between reconnection attempts"))

	key = "reconnect-interval-factor"
	cmd.PersistentFlags().Float64(key, common.DefaultReconnectIntervalFactor, WrapString("Factor the reconnect delay grows by after every disconnect"))

	key = "max-queued-sends"
	cmd.PersistentFlags().Int(key, common.DefaultMaxQueuedSends, WrapString("How many messages are queued while disconnected (0 = unbounded)"))

	key = "max-frame-size"
	cmd.PersistentFlags().Int(key, common.DefaultMaxFrameSize/1024, WrapString("The largest accepted frame (in KB)"))

	key = "tls-cert"
	cmd.PersistentFlags().String(key, "", WrapString("PEM certificate file, enables TLS (tcp only)"))

	key = "tls-key"
	cmd.PersistentFlags().String(key, "", WrapString("PEM private key file of the certificate"))

	key = "tls-ca"
	cmd.PersistentFlags().String(key, "", WrapString("Comma-separated list of PEM files trusted to verify the peer"))

	key = "tls-request-cert"
	cmd.PersistentFlags().Bool(key, false, WrapString("(Server) Request a certificate from connecting clients"))

	key = "tls-reject-unauthorized"
	cmd.PersistentFlags().Bool(key, false, WrapString("Reject peers whose certificate cannot be verified against the CA list"))

	key = "tls-server-name"
	cmd.PersistentFlags().String(key, "", WrapString("(Client) Server name used to verify the server certificate (default: the endpoint host)"))

	key = "tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (only for tcp)"))

	key = "tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval (in seconds, only for tcp)"))

	key = "tcp-linger"
	cmd.PersistentFlags().Int(key, -1, WrapString("The linger time (in seconds, only for tcp, -1 keeps the system default)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dsock")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper and initializes the loggers
func BindCommandFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return common.InitLoggers(viper.GetString("log-level"))
}

// GetSocketOptions reads the socket options from viper
func GetSocketOptions() (common.Options, error) {
	opts := common.DefaultOptions()
	opts.Timeout = viper.GetDuration("timeout")
	opts.ReconnectInterval = viper.GetDuration("reconnect-interval")
	opts.ReconnectIntervalMax = viper.GetDuration("reconnect-interval-max")
	opts.ReconnectIntervalFactor = viper.GetFloat64("reconnect-interval-factor")
	opts.MaxQueuedSends = viper.GetInt("max-queued-sends")
	opts.MaxFrameSize = viper.GetInt("max-frame-size") * 1024
	opts.TCP = common.TCPConf{
		TCPNoDelay:      viper.GetBool("tcp-nodelay"),
		TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
		TCPLingerSec:    viper.GetInt("tcp-linger"),
	}

	certFile, keyFile, caFiles := viper.GetString("tls-cert"), viper.GetString("tls-key"), viper.GetString("tls-ca")
	if certFile != "" || caFiles != "" {
		tlsConf, err := common.LoadTLSConf(certFile, keyFile, strings.Split(caFiles, ",")...)
		if err != nil {
			return opts, err
		}
		tlsConf.RequestCert = viper.GetBool("tls-request-cert")
		tlsConf.RejectUnauthorized = viper.GetBool("tls-reject-unauthorized")
		tlsConf.ServerName = viper.GetString("tls-server-name")
		opts.TLS = tlsConf
	}

	return opts, opts.WithDefaults().Validate()
}

// GetSocket creates a socket based on configuration
func GetSocket() (transport.ISocket, error) {
	opts, err := GetSocketOptions()
	if err != nil {
		return nil, err
	}

	endpoint := viper.GetString("endpoint")
	switch viper.GetString("transport") {
	case "tcp":
		host, portStr, err := net.SplitHostPort(endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid tcp endpoint %s: %w", endpoint, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid port %s: %w", portStr, err)
		}
		return tcp.NewSocket(port, host, opts), nil
	case "unix":
		return unix.NewSocket(endpoint, opts), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// StopSocket stops the socket and waits until it is closed (at most timeout)
func StopSocket(s transport.ISocket, timeout time.Duration) error {
	done := make(chan struct{})
	s.Stop(func() { close(done) })
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("socket did not stop within %s", timeout)
	}
}
