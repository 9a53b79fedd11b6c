/*
 * Copyright 2026 QuestDB
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package questdb

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"
)

// transport is the byte-stream connection used to deliver buffered rows.
// It is owned exclusively by one Sender and destroyed on close or on
// error teardown.
type transport interface {
	io.ReadWriter

	Close() error
	SetWriteDeadline(time.Time) error
}

// dialTransport opens a plain or TLS TCP connection per the config.
// It performs no protocol traffic; authentication happens on top of the
// returned connection.
func dialTransport(ctx context.Context, c *Config) (transport, error) {
	addr := net.JoinHostPort(c.host, strconv.Itoa(c.port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if c.tls == tlsDisabled {
		return conn, nil
	}

	tlsConfig := &tls.Config{ServerName: c.host}
	if c.tls == tlsCustomCA {
		pem, err := os.ReadFile(c.caPath)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			conn.Close()
			return nil, fmt.Errorf("no CA certificates in %s", c.caPath)
		}
		tlsConfig.RootCAs = pool
	}

	tlsConn := tls.Client(conn, tlsConfig)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("TLS handshake: %w", err)
	}
	return tlsConn, nil
}
