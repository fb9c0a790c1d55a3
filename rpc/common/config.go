package common

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	DefaultTimeout                 = 60 * time.Second
	DefaultReconnectInterval       = 200 * time.Millisecond
	DefaultReconnectIntervalMax    = 20 * time.Second
	DefaultReconnectIntervalFactor = 1.1
	DefaultReconnectResetAfter     = 10 * time.Second
	DefaultMaxQueuedSends          = 100000
	DefaultMaxFrameSize            = 64 * 1024 * 1024 // 64 MB
	DefaultDialTimeout             = 5 * time.Second
)

// --------------------------------------------------------------------------
// Socket option structs
// --------------------------------------------------------------------------

// TCPConf holds the socket level tuning applied to every TCP connection
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
	WriteBufferSize int
	ReadBufferSize  int
}

// TLSConf holds PEM encoded key material for TLS connections.
type TLSConf struct {
	Key                []byte
	Cert               []byte
	CA                 [][]byte
	RequestCert        bool
	RejectUnauthorized bool
	ServerName         string
}

// Options controls timeouts, reconnection and limits of a socket
type Options struct {
	// Timeout after which a request without response fails with ErrTimeout.
	// It is also used as the write deadline.
	Timeout time.Duration

	// Reconnect backoff: ReconnectInterval *= ReconnectIntervalFactor after every
	// disconnect, capped at ReconnectIntervalMax, reset after ReconnectResetAfter
	// without a further disconnect
	ReconnectInterval       time.Duration
	ReconnectIntervalMax    time.Duration
	ReconnectIntervalFactor float64
	ReconnectResetAfter     time.Duration

	// MaxQueuedSends bounds the frames queued while disconnected (0 = unbounded)
	MaxQueuedSends int

	// MaxFrameSize is the largest payload length accepted by the decoder
	MaxFrameSize int

	DialTimeout time.Duration

	// TLS enables TLS for tcp sockets when set
	TLS *TLSConf

	TCP TCPConf
}

// DefaultOptions returns the options used when nothing else is configured
func DefaultOptions() Options {
	return Options{
		Timeout:                 DefaultTimeout,
		ReconnectInterval:       DefaultReconnectInterval,
		ReconnectIntervalMax:    DefaultReconnectIntervalMax,
		ReconnectIntervalFactor: DefaultReconnectIntervalFactor,
		ReconnectResetAfter:     DefaultReconnectResetAfter,
		MaxQueuedSends:          DefaultMaxQueuedSends,
		MaxFrameSize:            DefaultMaxFrameSize,
		DialTimeout:             DefaultDialTimeout,
		TCP: TCPConf{
			TCPNoDelay:   true,
			TCPLingerSec: -1,
		},
	}
}

// WithDefaults returns a copy of the options where every zero value is replaced by its default
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.ReconnectInterval <= 0 {
		o.ReconnectInterval = d.ReconnectInterval
	}
	if o.ReconnectIntervalMax <= 0 {
		o.ReconnectIntervalMax = d.ReconnectIntervalMax
	}
	if o.ReconnectIntervalFactor <= 0 {
		o.ReconnectIntervalFactor = d.ReconnectIntervalFactor
	}
	if o.ReconnectResetAfter <= 0 {
		o.ReconnectResetAfter = d.ReconnectResetAfter
	}
	if o.MaxQueuedSends < 0 {
		o.MaxQueuedSends = 0
	}
	if o.MaxFrameSize <= 0 {
		o.MaxFrameSize = d.MaxFrameSize
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = d.DialTimeout
	}
	return o
}

// Validate checks the options for values that cannot work
func (o Options) Validate() error {
	if o.ReconnectIntervalFactor < 1 {
		return fmt.Errorf("reconnect interval factor must be >= 1, got %v", o.ReconnectIntervalFactor)
	}
	if o.ReconnectIntervalMax < o.ReconnectInterval {
		return fmt.Errorf("reconnect interval max (%s) is smaller than reconnect interval (%s)",
			o.ReconnectIntervalMax, o.ReconnectInterval)
	}
	if o.TLS != nil {
		if (len(o.TLS.Cert) == 0) != (len(o.TLS.Key) == 0) {
			return fmt.Errorf("tls cert and key must be set together")
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Socket configuration struct
// --------------------------------------------------------------------------

// SocketConfig is the full configuration of one socket instance
type SocketConfig struct {
	// Port and Host are used by tcp sockets
	Port int
	Host string

	// Path is used by unix sockets
	Path string

	Options Options
}

// Address returns the host:port endpoint of a tcp socket
func (c *SocketConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// String returns a formatted string representation of the configuration
func (c *SocketConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Socket")
	if c.Path != "" {
		addField("Path", c.Path)
	} else {
		addField("Endpoint", c.Address())
	}
	addField("TLS", fmt.Sprintf("%t", c.Options.TLS != nil))

	addSection("Requests")
	addField("Timeout", c.Options.Timeout.String())
	addField("Max Queued Sends", strconv.Itoa(c.Options.MaxQueuedSends))
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.Options.MaxFrameSize))

	addSection("Reconnect")
	addField("Interval", c.Options.ReconnectInterval.String())
	addField("Interval Max", c.Options.ReconnectIntervalMax.String())
	addField("Interval Factor", strconv.FormatFloat(c.Options.ReconnectIntervalFactor, 'f', -1, 64))
	addField("Reset After", c.Options.ReconnectResetAfter.String())
	addField("Dial Timeout", c.Options.DialTimeout.String())

	addSection("TCP")
	addField("No Delay", fmt.Sprintf("%t", c.Options.TCP.TCPNoDelay))
	addField("Keep Alive", fmt.Sprintf("%d sec", c.Options.TCP.TCPKeepAliveSec))
	addField("Linger", fmt.Sprintf("%d sec", c.Options.TCP.TCPLingerSec))

	return sb.String()
}

// --------------------------------------------------------------------------
// TLS helpers
// --------------------------------------------------------------------------

// LoadTLSConf reads PEM files into a TLSConf. Empty paths are skipped.
func LoadTLSConf(certFile, keyFile string, caFiles ...string) (*TLSConf, error) {
	conf := &TLSConf{}
	var err error

	if certFile != "" {
		if conf.Cert, err = os.ReadFile(certFile); err != nil {
			return nil, fmt.Errorf("failed to read tls cert: %w", err)
		}
	}
	if keyFile != "" {
		if conf.Key, err = os.ReadFile(keyFile); err != nil {
			return nil, fmt.Errorf("failed to read tls key: %w", err)
		}
	}
	for _, caFile := range caFiles {
		if caFile == "" {
			continue
		}
		ca, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read tls ca %s: %w", caFile, err)
		}
		conf.CA = append(conf.CA, ca)
	}
	return conf, nil
}

// ClientTLSConfig converts the TLSConf into a crypto/tls client config
func (c *TLSConf) ClientTLSConfig(host string) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         c.ServerName,
		InsecureSkipVerify: !c.RejectUnauthorized,
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}

	if len(c.Cert) > 0 {
		pair, err := tls.X509KeyPair(c.Cert, c.Key)
		if err != nil {
			return nil, fmt.Errorf("invalid tls key pair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{pair}
	}

	if len(c.CA) > 0 {
		pool, err := c.certPool()
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

// ServerTLSConfig converts the TLSConf into a crypto/tls server config
func (c *TLSConf) ServerTLSConfig() (*tls.Config, error) {
	if len(c.Cert) == 0 {
		return nil, fmt.Errorf("tls server requires a certificate")
	}
	pair, err := tls.X509KeyPair(c.Cert, c.Key)
	if err != nil {
		return nil, fmt.Errorf("invalid tls key pair: %w", err)
	}

	cfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{pair},
		ClientAuth:   tls.NoClientCert,
	}

	if len(c.CA) > 0 {
		pool, err := c.certPool()
		if err != nil {
			return nil, err
		}
		cfg.ClientCAs = pool
	}

	switch {
	case c.RequestCert && c.RejectUnauthorized:
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	case c.RequestCert:
		cfg.ClientAuth = tls.RequestClientCert
	}
	return cfg, nil
}

func (c *TLSConf) certPool() (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	for i, ca := range c.CA {
		if !pool.AppendCertsFromPEM(ca) {
			return nil, fmt.Errorf("invalid tls ca certificate at index %d", i)
		}
	}
	return pool, nil
}
