package questdb

import (
	"time"
)

// Symbol is one tag assignment in a Row.
type Symbol struct {
	Name  string
	Value string
}

// Column is one typed column assignment in a Row. Value must be a string,
// bool, int, int64, float64, or time.Time (written as a microsecond
// timestamp column).
type Column struct {
	Name  string
	Value any
}

// Row is one measurement event for Cable.Send. A zero At means the server
// assigns the ingestion timestamp.
type Row struct {
	Table   string
	Symbols []Symbol
	Columns []Column
	At      time.Time
}

// Cable is an asynchronous, batching facade over a connected Sender.
// Rows submitted with Send accumulate on the sender's buffer and are
// flushed when BatchRows rows are pending or BatchInterval elapses,
// whichever comes first.
//
// The Cable owns the Sender from Start until Close; no other caller may
// use the Sender in between.
type Cable struct {
	sender *Sender

	sendCh chan *sendRow
	doneCh chan struct{}

	pending []*sendRow

	// BatchRows is the pending-row count that triggers a flush.
	BatchRows int
	// BatchInterval is the flush interval. Zero or negative falls back
	// to one second.
	BatchInterval time.Duration
}

type sendRow struct {
	row Row
	err chan error
}

// NewCable creates a cable over a connected sender with a 1000-row batch
// size and a 1-second flush interval.
func NewCable(sender *Sender) *Cable {
	return &Cable{
		sender:        sender,
		sendCh:        make(chan *sendRow),
		doneCh:        make(chan struct{}),
		BatchRows:     1000,
		BatchInterval: time.Second,
	}
}

// Start launches the background flusher. It must be called once, before
// any Send.
func (c *Cable) Start() {
	go func() {
		defer close(c.doneCh)
		interval := c.BatchInterval
		if interval <= 0 {
			interval = time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		stop, flush := false, false
		for {
			if flush || len(c.pending) >= c.BatchRows {
				c.flushPending()
				flush = false
			}

			if stop {
				c.flushPending()
				return
			}

			select {
			case <-ticker.C:
				if len(c.pending) > 0 {
					flush = true
				}
			case sr, more := <-c.sendCh:
				if !more {
					stop = true
					continue
				}

				if err := c.appendRow(sr.row); err != nil {
					sr.err <- err
					continue
				}
				c.pending = append(c.pending, sr)
			}
		}
	}()
}

// Send submits one row. The returned channel yields the result of the
// batch flush that included the row: nil on success, or the error that
// poisoned the sender.
func (c *Cable) Send(row Row) <-chan error {
	sr := &sendRow{row: row, err: make(chan error, 1)}
	c.sendCh <- sr
	return sr.err
}

// Close flushes any pending rows, stops the background flusher, and
// closes the underlying sender.
func (c *Cable) Close() error {
	close(c.sendCh)
	<-c.doneCh
	return c.sender.Close()
}

func (c *Cable) flushPending() {
	if len(c.pending) == 0 {
		return
	}
	err := c.sender.Flush()
	for _, sr := range c.pending {
		if err != nil {
			sr.err <- err
		} else {
			close(sr.err)
		}
	}
	c.pending = c.pending[:0]
}

// appendRow encodes one Row onto the sender's buffer. Column types are
// checked up front so an unsupported value rejects the row without
// leaving a partial row on the sender.
func (c *Cable) appendRow(row Row) error {
	for _, col := range row.Columns {
		switch col.Value.(type) {
		case string, bool, int, int64, float64, time.Time:
		default:
			return newErr(KindInvalidArgument, "column %q has unsupported type %T", col.Name, col.Value)
		}
	}
	if err := c.sender.Table(row.Table); err != nil {
		return err
	}
	for _, s := range row.Symbols {
		if err := c.sender.Symbol(s.Name, s.Value); err != nil {
			return err
		}
	}
	for _, col := range row.Columns {
		var err error
		switch v := col.Value.(type) {
		case string:
			err = c.sender.String(col.Name, v)
		case bool:
			err = c.sender.Bool(col.Name, v)
		case int:
			err = c.sender.Int64(col.Name, int64(v))
		case int64:
			err = c.sender.Int64(col.Name, v)
		case float64:
			err = c.sender.Float64(col.Name, v)
		case time.Time:
			err = c.sender.Timestamp(col.Name, v.UnixMicro())
		}
		if err != nil {
			return err
		}
	}
	if row.At.IsZero() {
		return c.sender.AtNow()
	}
	return c.sender.At(row.At.UnixNano())
}
