package serve

import (
	"errors"
	"fmt"
	cmdUtil "github.com/ValentinKolb/dSock/cmd/util"
	"github.com/ValentinKolb/dSock/rpc/common"
	"github.com/ValentinKolb/dSock/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

var (
	log = logger.GetLogger(common.LoggerCLI)

	ServeCmd = &cobra.Command{
		Use:     "serve",
		Short:   "Start an echo server",
		Long:    `Start a dSock server that answers every message with its own payload. The configuration can be set via command line flags or environment variables. The format of the environment variables is DSOCK_<flag> (e.g. DSOCK_MAX_FRAME_SIZE=1024)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupSocketFlags(ServeCmd)

	key := "metrics-endpoint"
	ServeCmd.Flags().String(key, "", cmdUtil.WrapString("If set, the prometheus metrics are served on this address (e.g. localhost:9090)"))

	key = "quiet"
	ServeCmd.Flags().Bool(key, false, cmdUtil.WrapString("Do not print received messages"))
}

// processConfig binds the flags and initializes the loggers
func processConfig(cmd *cobra.Command, _ []string) error {
	return cmdUtil.BindCommandFlags(cmd)
}

// run starts the echo server and blocks until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	socket, err := cmdUtil.GetSocket()
	if err != nil {
		return err
	}

	quiet := viper.GetBool("quiet")

	socket.OnError(func(err error) {
		log.Warningf("Socket error: %v", err)
	})
	socket.OnConnection(func(conn transport.IServerConn) {
		log.Infof("Client %d connected from %s", conn.ID(), conn.RemoteAddr())
		conn.OnClose(func() {
			log.Infof("Client %d disconnected", conn.ID())
		})
	})
	socket.OnMessage(func(msg *common.ReceivedEnvelope) {
		if !quiet {
			fmt.Println(msg.String())
		}
		if err := msg.Reply(msg.Data); err != nil {
			log.Warningf("Failed to reply to %s: %v", msg.UID, err)
		}
	})

	if endpoint := viper.GetString("metrics-endpoint"); endpoint != "" {
		go serveMetrics(endpoint)
	}

	listening := make(chan struct{})
	if err := socket.StartServer(func() { close(listening) }); err != nil {
		return err
	}
	<-listening
	fmt.Printf("dSock server listening on %s\n", socket.Addr())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	fmt.Println("shutting down...")
	return cmdUtil.StopSocket(socket, viper.GetDuration("timeout"))
}

// serveMetrics exposes all registered metrics in the prometheus text format
func serveMetrics(endpoint string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	log.Infof("Serving metrics on http://%s/metrics", endpoint)
	if err := http.ListenAndServe(endpoint, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("Metrics server failed: %v", err)
	}
}
