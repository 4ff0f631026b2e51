package sql

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Context threads a cancelable context.Context, a logger, and query/
// transaction identity through every call in the planner and executor,
// so that no package needs a process-wide singleton (see the design's
// guidance to pass an explicit, borrowed Context into every call).
type Context struct {
	context.Context

	QueryID uuid.UUID
	TxnID   int64

	log *logrus.Entry

	startedAt time.Time
}

// NewContext wraps parent with a fresh query id and a logger derived
// from base. txnID is the caller-supplied monotonic transaction id this
// query executes under (see storage's MVCC visibility rules).
func NewContext(parent context.Context, base *logrus.Logger, txnID int64) *Context {
	if base == nil {
		base = logrus.StandardLogger()
	}
	qid := uuid.New()
	return &Context{
		Context:   parent,
		QueryID:   qid,
		TxnID:     txnID,
		log:       base.WithField("query_id", qid.String()),
		startedAt: time.Now(),
	}
}

// NewEmptyContext returns a Context suitable for bootstrap/administrative
// calls that do not belong to any in-flight query (catalog setup, tests).
func NewEmptyContext() *Context {
	return NewContext(context.Background(), nil, 0)
}

// Logger returns the structured logger scoped to this query.
func (c *Context) Logger() *logrus.Entry {
	return c.log
}

// Elapsed returns how long this query's Context has been alive.
func (c *Context) Elapsed() time.Duration {
	return time.Since(c.startedAt)
}

// WithLogger returns a copy of c using entry in place of its logger.
func (c *Context) WithLogger(entry *logrus.Entry) *Context {
	cp := *c
	cp.log = entry
	return &cp
}
