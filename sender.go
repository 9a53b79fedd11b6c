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
	"time"

	"go.uber.org/zap"
)

type senderState int

const (
	stateUnconnected senderState = iota
	stateConnected
	stateClosed
)

// Sender streams rows to a QuestDB server over the line protocol. It owns
// one connection and one row buffer, created by Connect and released by
// Close.
//
// Error handling is fail-fast: any error raised while building a row or
// flushing poisons the Sender. The pending buffer is discarded, the
// connection is closed, and every subsequent call reports the original
// error. Partial rows cannot be retried against the server's stateful
// parser, so a single invalid field deliberately destroys the whole
// connection rather than just rejecting that field. The one exception is
// Connect itself: a failed Connect leaves the Sender unconnected and it
// may be retried with a corrected config.
//
// A Sender is not safe for concurrent use. Connect and Flush block on
// network I/O; callers needing bounded latency should set a write timeout
// on the Config or cancel the Connect context.
type Sender struct {
	config *Config
	log    *zap.Logger

	state     senderState
	transport transport
	buf       *Buffer
	poisonErr error
}

// NewSender creates an unconnected sender. No network I/O happens until
// Connect.
func NewSender(config *Config) *Sender {
	log := zap.NewNop()
	if config != nil && config.logger != nil {
		log = config.logger
	}
	return &Sender{config: config, log: log}
}

// Connect establishes the connection described by the sender's config,
// performing the TLS handshake and authentication challenge as configured.
// On failure the sender holds no connection and Connect may be called
// again. On success the row buffer is allocated and rows may be built.
func (s *Sender) Connect(ctx context.Context) error {
	if s.poisonErr != nil {
		return s.poisonErr
	}
	switch s.state {
	case stateConnected:
		return newErr(KindProtocolViolation, "already connected")
	case stateClosed:
		return newErr(KindProtocolViolation, "sender is closed")
	}
	if s.config == nil {
		return newErr(KindInvalidArgument, "nil config")
	}
	if err := s.config.err; err != nil {
		return err
	}
	if s.config.host == "" {
		return newErr(KindInvalidArgument, "no endpoint configured")
	}

	t, err := dialTransport(ctx, s.config)
	if err != nil {
		s.log.Warn("connect failed",
			zap.String("host", s.config.host),
			zap.Int("port", s.config.port),
			zap.Error(err))
		return wrapErr(err, KindTransportFailure, "connect")
	}

	if s.config.auth != nil {
		if err := authenticate(t, s.config.auth); err != nil {
			t.Close()
			s.log.Warn("authentication failed", zap.Error(err))
			return wrapErr(err, KindAuthFailure, "authenticate")
		}
	}

	s.transport = t
	s.buf = NewBuffer(s.config.initBufSize)
	s.state = stateConnected
	s.log.Debug("connected",
		zap.String("host", s.config.host),
		zap.Int("port", s.config.port),
		zap.Bool("tls", s.config.tls != tlsDisabled),
		zap.Bool("auth", s.config.auth != nil))
	return nil
}

// Table starts a new row for the given table.
func (s *Sender) Table(name string) error {
	if err := s.usable(); err != nil {
		return err
	}
	return s.check(s.buf.Table(name))
}

// Symbol appends a symbol (tag) column to the row in progress. Symbols
// must precede all typed columns.
func (s *Sender) Symbol(name, value string) error {
	if err := s.usable(); err != nil {
		return err
	}
	return s.check(s.buf.Symbol(name, value))
}

// String appends a string column to the row in progress.
func (s *Sender) String(name, value string) error {
	if err := s.usable(); err != nil {
		return err
	}
	return s.check(s.buf.String(name, value))
}

// Bool appends a boolean column to the row in progress.
func (s *Sender) Bool(name string, value bool) error {
	if err := s.usable(); err != nil {
		return err
	}
	return s.check(s.buf.Bool(name, value))
}

// Int64 appends a 64-bit integer column to the row in progress.
func (s *Sender) Int64(name string, value int64) error {
	if err := s.usable(); err != nil {
		return err
	}
	return s.check(s.buf.Int64(name, value))
}

// Float64 appends a double-precision column to the row in progress.
func (s *Sender) Float64(name string, value float64) error {
	if err := s.usable(); err != nil {
		return err
	}
	return s.check(s.buf.Float64(name, value))
}

// Timestamp appends a timestamp column in microseconds since the Unix
// epoch.
func (s *Sender) Timestamp(name string, micros int64) error {
	if err := s.usable(); err != nil {
		return err
	}
	return s.check(s.buf.Timestamp(name, micros))
}

// At terminates the row in progress with a designated timestamp in
// nanoseconds since the Unix epoch.
func (s *Sender) At(nanos int64) error {
	if err := s.usable(); err != nil {
		return err
	}
	return s.check(s.buf.At(nanos))
}

// AtNow terminates the row in progress, letting the server assign the
// ingestion timestamp.
func (s *Sender) AtNow() error {
	if err := s.usable(); err != nil {
		return err
	}
	return s.check(s.buf.AtNow())
}

// Flush writes all buffered rows to the server and clears the buffer,
// retaining its capacity. Every row must be terminated with At or AtNow
// before calling Flush.
func (s *Sender) Flush() error {
	if err := s.usable(); err != nil {
		return err
	}
	if s.buf.InProgress() {
		return s.poison(newErr(KindProtocolViolation, "flush with an unterminated row"))
	}
	if s.buf.Len() == 0 {
		return nil
	}

	if s.config.writeTimeout > 0 {
		if err := s.transport.SetWriteDeadline(time.Now().Add(s.config.writeTimeout)); err != nil {
			return s.poison(wrapErr(err, KindTransportFailure, "set write deadline"))
		}
	}
	data := s.buf.Bytes()
	for len(data) > 0 {
		n, err := s.transport.Write(data)
		if err != nil {
			return s.poison(wrapErr(err, KindTransportFailure, "flush"))
		}
		data = data[n:]
	}

	s.log.Debug("flushed", zap.Int("rows", s.buf.Rows()), zap.Int("bytes", s.buf.Len()))
	s.buf.Reset()
	return nil
}

// Close releases the connection and moves the sender to its terminal
// state. It is safe to call from any state, including repeatedly and
// before Connect.
func (s *Sender) Close() error {
	if s.state == stateClosed {
		return nil
	}
	s.state = stateClosed
	s.buf = nil
	if s.transport == nil {
		return nil
	}
	err := s.transport.Close()
	s.transport = nil
	if err != nil {
		return wrapErr(err, KindTransportFailure, "close")
	}
	s.log.Debug("closed")
	return nil
}

// usable reports the poisoned error, if any, and otherwise requires the
// sender to be connected.
func (s *Sender) usable() error {
	if s.poisonErr != nil {
		return s.poisonErr
	}
	switch s.state {
	case stateUnconnected:
		return newErr(KindProtocolViolation, "not connected")
	case stateClosed:
		return newErr(KindProtocolViolation, "sender is closed")
	}
	return nil
}

// check poisons the sender if a buffer mutation failed.
func (s *Sender) check(err error) error {
	if err != nil {
		return s.poison(err)
	}
	return nil
}

// poison tears the sender down after an unrecoverable error: the pending
// buffer is discarded, the connection is closed, and the error is latched
// so that all subsequent calls report it.
func (s *Sender) poison(err error) error {
	s.poisonErr = err
	s.buf = nil
	if s.transport != nil {
		s.transport.Close()
		s.transport = nil
	}
	s.state = stateClosed
	s.log.Warn("sender poisoned", zap.Error(err))
	return err
}
