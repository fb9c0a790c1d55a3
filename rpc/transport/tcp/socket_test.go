package tcp

import (
	"context"
	"errors"
	"github.com/ValentinKolb/dSock/lib/keygen"
	"github.com/ValentinKolb/dSock/rpc/common"
	"github.com/ValentinKolb/dSock/rpc/transport"
	"net"
	"path/filepath"
	"testing"
	"time"
)

func testOptions() common.Options {
	opts := common.DefaultOptions()
	opts.Timeout = 2 * time.Second
	opts.ReconnectInterval = 10 * time.Millisecond
	opts.ReconnectIntervalMax = 100 * time.Millisecond
	return opts
}

func stop(t *testing.T, s transport.ISocket) {
	t.Helper()
	done := make(chan struct{})
	s.Stop(func() { close(done) })
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Errorf("Socket did not stop in time")
	}
}

// startEchoServer starts a server replying every message with its data
func startEchoServer(t *testing.T, opts common.Options) (transport.ISocket, int) {
	t.Helper()
	server := NewSocket(0, "127.0.0.1", opts)
	server.OnError(func(error) {})
	server.OnMessage(func(msg *common.ReceivedEnvelope) {
		_ = msg.Reply(msg.Data)
	})

	ready := make(chan struct{})
	if err := server.StartServer(func() { close(ready) }); err != nil {
		t.Fatalf("StartServer failed: %v", err)
	}
	select {
	case <-ready:
	case <-time.After(3 * time.Second):
		t.Fatal("Server did not start listening")
	}
	t.Cleanup(func() { stop(t, server) })
	return server, server.Addr().(*net.TCPAddr).Port
}

func request(t *testing.T, client transport.ISocket, payload string) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	resp, err := client.Request(ctx, payload)
	if err != nil {
		return "", err
	}
	var text string
	err = resp.Decode(&text)
	return text, err
}

func TestTCPRoundTrip(t *testing.T) {
	_, port := startEchoServer(t, testOptions())

	client := NewSocket(port, "127.0.0.1", testOptions())
	client.OnError(func(error) {})
	if err := client.StartClient(nil); err != nil {
		t.Fatalf("StartClient failed: %v", err)
	}
	defer stop(t, client)

	// sent before the connection is established, queued and flushed
	text, err := request(t, client, "I'm a #sharp# message !")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if text != "I'm a #sharp# message !" {
		t.Errorf("Expected echo, got %q", text)
	}
}

// generatePair writes a key pair into dir and returns the tls configuration parts
func generatePair(t *testing.T, dir, name string) (pub, priv string) {
	t.Helper()
	pub = filepath.Join(dir, name+".pub")
	priv = filepath.Join(dir, name+".pem")
	if err := keygen.GenerateKeys(pub, priv); err != nil {
		t.Fatalf("GenerateKeys failed: %v", err)
	}
	return pub, priv
}

func TestTLSMutualAuth(t *testing.T) {
	dir := t.TempDir()
	serverPub, serverPriv := generatePair(t, dir, "server")
	clientPub, clientPriv := generatePair(t, dir, "client")

	serverTLS, err := common.LoadTLSConf(serverPub, serverPriv, clientPub)
	if err != nil {
		t.Fatalf("LoadTLSConf failed: %v", err)
	}
	serverTLS.RequestCert = true
	serverTLS.RejectUnauthorized = true

	serverOpts := testOptions()
	serverOpts.TLS = serverTLS
	_, port := startEchoServer(t, serverOpts)

	clientTLS, err := common.LoadTLSConf(clientPub, clientPriv)
	if err != nil {
		t.Fatalf("LoadTLSConf failed: %v", err)
	}
	clientOpts := testOptions()
	clientOpts.TLS = clientTLS

	client := NewSocket(port, "127.0.0.1", clientOpts)
	client.OnError(func(error) {})
	if err := client.StartClient(nil); err != nil {
		t.Fatalf("StartClient failed: %v", err)
	}
	defer stop(t, client)

	text, err := request(t, client, "I'm a #sharp# message !")
	if err != nil {
		t.Fatalf("Request over TLS failed: %v", err)
	}
	if text != "I'm a #sharp# message !" {
		t.Errorf("Expected echo, got %q", text)
	}
}

func TestTLSRejectsUnknownClient(t *testing.T) {
	dir := t.TempDir()
	serverPub, serverPriv := generatePair(t, dir, "server")
	trustedPub, _ := generatePair(t, dir, "trusted")
	otherPub, otherPriv := generatePair(t, dir, "other")

	serverTLS, err := common.LoadTLSConf(serverPub, serverPriv, trustedPub)
	if err != nil {
		t.Fatalf("LoadTLSConf failed: %v", err)
	}
	serverTLS.RequestCert = true
	serverTLS.RejectUnauthorized = true

	serverOpts := testOptions()
	serverOpts.TLS = serverTLS
	_, port := startEchoServer(t, serverOpts)

	clientTLS, err := common.LoadTLSConf(otherPub, otherPriv)
	if err != nil {
		t.Fatalf("LoadTLSConf failed: %v", err)
	}
	clientOpts := testOptions()
	clientOpts.TLS = clientTLS
	clientOpts.Timeout = 300 * time.Millisecond

	client := NewSocket(port, "127.0.0.1", clientOpts)
	client.OnError(func(error) {})
	if err := client.StartClient(nil); err != nil {
		t.Fatalf("StartClient failed: %v", err)
	}
	defer stop(t, client)

	if _, err := request(t, client, "let me in"); !errors.Is(err, common.ErrTimeout) {
		t.Errorf("Expected the request of an untrusted client to time out, got %v", err)
	}
}

func TestTLSVerifiesServer(t *testing.T) {
	dir := t.TempDir()
	serverPub, serverPriv := generatePair(t, dir, "server")

	serverTLS, err := common.LoadTLSConf(serverPub, serverPriv)
	if err != nil {
		t.Fatalf("LoadTLSConf failed: %v", err)
	}
	serverOpts := testOptions()
	serverOpts.TLS = serverTLS
	_, port := startEchoServer(t, serverOpts)

	// the client pins the server certificate
	clientTLS, err := common.LoadTLSConf("", "", serverPub)
	if err != nil {
		t.Fatalf("LoadTLSConf failed: %v", err)
	}
	clientTLS.RejectUnauthorized = true
	clientOpts := testOptions()
	clientOpts.TLS = clientTLS

	client := NewSocket(port, "127.0.0.1", clientOpts)
	client.OnError(func(error) {})
	if err := client.StartClient(nil); err != nil {
		t.Fatalf("StartClient failed: %v", err)
	}
	defer stop(t, client)

	if text, err := request(t, client, "pinned"); err != nil || text != "pinned" {
		t.Errorf("Expected echo over verified TLS, got %q (%v)", text, err)
	}
}

func TestUpgradeConnection(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer l.Close()

	conn, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	conf := common.TCPConf{
		TCPNoDelay:      true,
		TCPKeepAliveSec: 30,
		TCPLingerSec:    0,
		WriteBufferSize: 64 * 1024,
		ReadBufferSize:  64 * 1024,
	}
	if err := upgradeConnection(conn, conf); err != nil {
		t.Errorf("upgradeConnection failed: %v", err)
	}

	// non tcp connections are left alone
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	if err := upgradeConnection(a, conf); err != nil {
		t.Errorf("Expected no error for a pipe, got %v", err)
	}
}
