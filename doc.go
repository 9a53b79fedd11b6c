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

/*
Package questdb provides a client for fast data ingestion into QuestDB
over the InfluxDB Line Protocol (ILP) on a plain or TLS TCP socket.

# Sender

Use NewSender to create a sender, then Connect it and build rows:

	sender := questdb.NewSender(questdb.NewConfig().Endpoint("localhost", 9009))
	if err := sender.Connect(ctx); err != nil {
		return err
	}
	defer sender.Close()

	sender.Table("sensors")
	sender.Symbol("loc", "ny")
	sender.Float64("temp", 23.5)
	sender.At(time.Now().UnixNano())

	if err := sender.Flush(); err != nil {
		return err
	}

Each row is table name, then zero or more symbols, then zero or more typed
columns, terminated by At or AtNow. Rows accumulate in an in-memory buffer
until Flush writes them to the socket in one batch.

A Sender is not safe for concurrent use. Any encoding or I/O error closes
the connection and leaves the Sender unusable; see the Sender docs for the
exact error contract.

# Write Data via Cables

Use Cable for a batching, asynchronous facade over a connected Sender:

	cable := questdb.NewCable(sender)
	cable.Start()
	defer cable.Close()

	errCh := cable.Send(questdb.Row{
		Table:   "sensors",
		Symbols: []questdb.Symbol{{Name: "loc", Value: "ny"}},
		Columns: []questdb.Column{{Name: "temp", Value: 23.5}},
	})
	if err := <-errCh; err != nil {
		return err
	}
*/
package questdb
