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

package questdb_test

import (
	"bufio"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"io"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	questdb "github.com/questdb/go-questdb-client"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSenderFlushSingleRow(t *testing.T) {
	srv := startServer(t)
	sender := connectedSender(t, srv)

	require.NoError(t, sender.Table("sensors"))
	require.NoError(t, sender.Symbol("loc", "ny"))
	require.NoError(t, sender.Float64("temp", 23.5))
	require.NoError(t, sender.At(1700000000000000000))
	require.NoError(t, sender.Flush())
	require.NoError(t, sender.Close())

	require.Equal(t, "sensors,loc=ny temp=23.5 1700000000000000000\n", string(<-srv.Recv))
}

func TestSenderFlushClearsBuffer(t *testing.T) {
	srv := startServer(t)
	sender := connectedSender(t, srv)

	require.NoError(t, sender.Table("t"))
	require.NoError(t, sender.Int64("n", 1))
	require.NoError(t, sender.AtNow())
	require.NoError(t, sender.Flush())

	// An empty flush after a successful one writes nothing.
	require.NoError(t, sender.Flush())

	require.NoError(t, sender.Table("t"))
	require.NoError(t, sender.Int64("n", 2))
	require.NoError(t, sender.AtNow())
	require.NoError(t, sender.Flush())
	require.NoError(t, sender.Close())

	require.Equal(t, "t n=1i\nt n=2i\n", string(<-srv.Recv))
}

func TestSenderPoisonedByOrderViolation(t *testing.T) {
	srv := startServer(t)
	sender := connectedSender(t, srv)

	require.NoError(t, sender.Table("t"))
	require.NoError(t, sender.Float64("x", 1.0))

	err := sender.Symbol("a", "b")
	require.Equal(t, questdb.KindProtocolViolation, questdb.KindOf(err))

	// Poisoned: every subsequent call reports the original error.
	require.Equal(t, err, sender.Flush())
	require.Equal(t, err, sender.Table("t"))
	require.Equal(t, err, sender.AtNow())

	// The connection was torn down as part of the error handling, so the
	// server sees EOF without waiting for Close.
	require.Empty(t, <-srv.Recv)
	require.NoError(t, sender.Close())
}

func TestSenderPoisonedByUnterminatedFlush(t *testing.T) {
	srv := startServer(t)
	sender := connectedSender(t, srv)

	require.NoError(t, sender.Table("t"))
	require.NoError(t, sender.Int64("n", 1))

	err := sender.Flush()
	require.Equal(t, questdb.KindProtocolViolation, questdb.KindOf(err))
	require.Equal(t, err, sender.Flush())
}

func TestSenderPoisonedByWriteFailure(t *testing.T) {
	srv := startServer(t)
	sender := connectedSender(t, srv)

	// Kill the server side, then flush enough bytes to defeat kernel
	// buffering so the write surfaces an error.
	serverConn := <-srv.Accepted
	require.NoError(t, serverConn.Close())

	var err error
	for i := 0; i < 10000 && err == nil; i++ {
		if err = sender.Table("t"); err != nil {
			break
		}
		if err = sender.String("payload", "0123456789abcdef0123456789abcdef"); err != nil {
			break
		}
		if err = sender.AtNow(); err != nil {
			break
		}
		err = sender.Flush()
	}
	require.Error(t, err)
	require.Equal(t, questdb.KindTransportFailure, questdb.KindOf(err))
}

func TestSenderCloseIdempotent(t *testing.T) {
	sender := questdb.NewSender(questdb.NewConfig().Endpoint("localhost", 9009))

	// Close before connect is a no-op, and repeated closes never fail.
	require.NoError(t, sender.Close())
	require.NoError(t, sender.Close())

	err := sender.Connect(context.Background())
	require.Equal(t, questdb.KindProtocolViolation, questdb.KindOf(err))
}

func TestSenderRowCallsRequireConnect(t *testing.T) {
	sender := questdb.NewSender(questdb.NewConfig().Endpoint("localhost", 9009))
	require.Equal(t, questdb.KindProtocolViolation, questdb.KindOf(sender.Table("t")))
	require.NoError(t, sender.Close())
}

func TestSenderConnectBadCARetriable(t *testing.T) {
	certPEM, keyPEM := selfSignedCert(t)

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	require.NoError(t, err)
	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{cert}})
	require.NoError(t, err)
	defer ln.Close()

	recv := make(chan []byte, 2)
	go func() {
		defer close(recv)
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			data, _ := io.ReadAll(conn)
			conn.Close()
			recv <- data
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	cfg := questdb.NewConfig().
		Endpoint("127.0.0.1", port).
		EnableTLSWithCA("/no/such/file").
		WithLogger(zaptest.NewLogger(t))
	sender := questdb.NewSender(cfg)

	err = sender.Connect(context.Background())
	require.Equal(t, questdb.KindTransportFailure, questdb.KindOf(err))
	require.Empty(t, <-recv)

	// The sender is still unconnected, not poisoned: correct the config
	// and retry with the same sender.
	caPath := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(caPath, certPEM, 0o600))
	cfg.EnableTLSWithCA(caPath)

	require.NoError(t, sender.Connect(context.Background()))
	require.NoError(t, sender.Table("t"))
	require.NoError(t, sender.Bool("ok", true))
	require.NoError(t, sender.AtNow())
	require.NoError(t, sender.Flush())
	require.NoError(t, sender.Close())

	require.Equal(t, "t ok=t\n", string(<-recv))
}

// selfSignedCert issues a throwaway P-256 certificate for 127.0.0.1.
func selfSignedCert(t testing.TB) (certPEM, keyPEM []byte) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "questdb-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		IsCA:                  true,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM
}

func TestSenderConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	sender := questdb.NewSender(questdb.NewConfig().Endpoint("127.0.0.1", port))
	err = sender.Connect(context.Background())
	require.Equal(t, questdb.KindTransportFailure, questdb.KindOf(err))
	require.NoError(t, sender.Close())
}

func TestSenderDoubleConnect(t *testing.T) {
	srv := startServer(t)
	sender := connectedSender(t, srv)

	err := sender.Connect(context.Background())
	require.Equal(t, questdb.KindProtocolViolation, questdb.KindOf(err))
	require.NoError(t, sender.Close())
	require.Empty(t, <-srv.Recv)
}

func TestSenderAuth(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	enc := base64.RawURLEncoding
	cfgAuth := []string{
		"testUser1",
		enc.EncodeToString(key.D.Bytes()),
		enc.EncodeToString(key.X.Bytes()),
		enc.EncodeToString(key.Y.Bytes()),
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	const challenge = "nohnaePha1yaeteitoo7"
	type authResult struct {
		keyID string
		ok    bool
		data  []byte
	}
	resCh := make(chan authResult, 1)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(resCh)
			return
		}
		defer conn.Close()

		reader := bufio.NewReader(conn)
		keyID, err := reader.ReadString('\n')
		if err != nil {
			close(resCh)
			return
		}
		if _, err := conn.Write([]byte(challenge + "\n")); err != nil {
			close(resCh)
			return
		}
		sigLine, err := reader.ReadString('\n')
		if err != nil {
			close(resCh)
			return
		}
		sig, err := base64.StdEncoding.DecodeString(sigLine[:len(sigLine)-1])
		if err != nil {
			close(resCh)
			return
		}

		hash := sha256.Sum256([]byte(challenge))
		ok := ecdsa.VerifyASN1(&key.PublicKey, hash[:], sig)

		data, _ := io.ReadAll(reader)
		resCh <- authResult{keyID: keyID, ok: ok, data: data}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	sender := questdb.NewSender(questdb.NewConfig().
		Endpoint("127.0.0.1", port).
		WithAuth(cfgAuth[0], cfgAuth[1], cfgAuth[2], cfgAuth[3]))
	require.NoError(t, sender.Connect(context.Background()))

	require.NoError(t, sender.Table("t"))
	require.NoError(t, sender.Int64("n", 7))
	require.NoError(t, sender.AtNow())
	require.NoError(t, sender.Flush())
	require.NoError(t, sender.Close())

	res := <-resCh
	require.Equal(t, "testUser1\n", res.keyID)
	require.True(t, res.ok, "challenge signature must verify")
	require.Equal(t, "t n=7i\n", string(res.data))
}

func TestSenderAuthBadKey(t *testing.T) {
	srv := startServer(t)

	sender := questdb.NewSender(questdb.NewConfig().
		Endpoint(srv.Host(), srv.Port()).
		WithAuth("user", "!!not-base64url!!", "x", "y"))
	err := sender.Connect(context.Background())
	require.Equal(t, questdb.KindAuthFailure, questdb.KindOf(err))
	require.NoError(t, sender.Close())
}
