package questdb

import (
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

type tlsMode int

const (
	tlsDisabled tlsMode = iota
	tlsSystemCAs
	tlsCustomCA
)

// authOptions holds the ECDSA key material for the ILP authentication
// challenge. All four fields are required together.
type authOptions struct {
	keyID      string
	privateKey string
	publicKeyX string
	publicKeyY string
}

// Config describes how to reach and authenticate to a QuestDB server.
//
// Build it with NewConfig and the chainable setters. Each setter validates
// its arguments eagerly; the first validation error is latched and reported
// by Err and by Sender.Connect, so a chain never has to check errors
// mid-build. A Config is consumed by Connect and must not be mutated after.
type Config struct {
	host         string
	port         int
	tls          tlsMode
	caPath       string
	auth         *authOptions
	initBufSize  int
	writeTimeout time.Duration
	logger       *zap.Logger

	err error
}

const defaultInitBufSize = 64 * 1024

// NewConfig creates a config with no endpoint set and a 64 KiB initial
// buffer reservation.
func NewConfig() *Config {
	return &Config{
		initBufSize: defaultInitBufSize,
		logger:      zap.NewNop(),
	}
}

// Endpoint sets the server host and port.
func (c *Config) Endpoint(host string, port int) *Config {
	if c.err != nil {
		return c
	}
	if host == "" || !utf8.ValidString(host) {
		c.err = newErr(KindInvalidArgument, "invalid host %q", host)
		return c
	}
	if port < 1 || port > 65535 {
		c.err = newErr(KindInvalidArgument, "port %d out of range [1, 65535]", port)
		return c
	}
	c.host = host
	c.port = port
	return c
}

// EnableTLS enables TLS using the system trust store.
func (c *Config) EnableTLS() *Config {
	if c.err != nil {
		return c
	}
	c.tls = tlsSystemCAs
	c.caPath = ""
	return c
}

// EnableTLSWithCA enables TLS, trusting only the CA certificates in the
// given PEM file. The file is read during Connect.
func (c *Config) EnableTLSWithCA(path string) *Config {
	if c.err != nil {
		return c
	}
	if path == "" || !utf8.ValidString(path) {
		c.err = newErr(KindInvalidArgument, "invalid CA path %q", path)
		return c
	}
	c.tls = tlsCustomCA
	c.caPath = path
	return c
}

// WithAuth sets the ECDSA key material for the ILP authentication
// challenge. keyID identifies the key to the server; privateKey is the
// base64url-encoded P-256 private scalar; publicKeyX and publicKeyY are
// the base64url-encoded public key coordinates.
func (c *Config) WithAuth(keyID, privateKey, publicKeyX, publicKeyY string) *Config {
	if c.err != nil {
		return c
	}
	for _, f := range []struct{ name, value string }{
		{"key id", keyID},
		{"private key", privateKey},
		{"public key x", publicKeyX},
		{"public key y", publicKeyY},
	} {
		if f.value == "" || !utf8.ValidString(f.value) {
			c.err = newErr(KindInvalidArgument, "auth %s is missing or not valid UTF-8", f.name)
			return c
		}
	}
	c.auth = &authOptions{
		keyID:      keyID,
		privateKey: privateKey,
		publicKeyX: publicKeyX,
		publicKeyY: publicKeyY,
	}
	return c
}

// WithInitBufSize sets the initial buffer capacity reserved on connect.
func (c *Config) WithInitBufSize(n int) *Config {
	if c.err != nil {
		return c
	}
	if n < 0 {
		c.err = newErr(KindInvalidArgument, "negative buffer size %d", n)
		return c
	}
	c.initBufSize = n
	return c
}

// WithWriteTimeout sets a per-flush write deadline on the socket.
// Zero means no deadline.
func (c *Config) WithWriteTimeout(d time.Duration) *Config {
	if c.err != nil {
		return c
	}
	if d < 0 {
		c.err = newErr(KindInvalidArgument, "negative write timeout %v", d)
		return c
	}
	c.writeTimeout = d
	return c
}

// WithLogger sets the logger used by the Sender. The default is a no-op
// logger.
func (c *Config) WithLogger(l *zap.Logger) *Config {
	if c.err != nil {
		return c
	}
	if l == nil {
		l = zap.NewNop()
	}
	c.logger = l
	return c
}

// Err returns the first validation error recorded by a setter, if any.
func (c *Config) Err() error {
	return c.err
}
