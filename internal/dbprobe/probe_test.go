package dbprobe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/apperr"
	"sentinel/internal/metrics"
	"sentinel/internal/models"
)

type fakeConn struct {
	pingErr error
	closed  atomic.Bool
}

func (c *fakeConn) Ping(ctx context.Context) error { return c.pingErr }
func (c *fakeConn) Close() error {
	c.closed.Store(true)
	return nil
}

type fakeDriver struct {
	opens   atomic.Int32
	openErr error
	block   bool
	conn    *fakeConn
}

func (d *fakeDriver) Name() string { return "fake" }

func (d *fakeDriver) Open(ctx context.Context, t models.DatabaseTarget, timeout time.Duration) (Conn, error) {
	d.opens.Add(1)
	if d.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.conn, nil
}

func fakeProber(d *fakeDriver, timeout time.Duration) *Prober {
	r := DefaultRegistry()
	r.RegisterDriver("postgresql", d)
	return NewProber(Config{Registry: r, LoginTimeout: timeout})
}

func TestProbe_Success(t *testing.T) {
	conn := &fakeConn{}
	p := fakeProber(&fakeDriver{conn: conn}, time.Second)

	url, err := p.Probe(context.Background(), target)

	require.NoError(t, err)
	assert.Equal(t, "jdbc:postgresql://db.local:5432/postgres", url)
	assert.True(t, conn.closed.Load())
	assert.True(t, p.TestConnection(context.Background(), target))
}

func TestProbe_UnsupportedDialectNeverConnects(t *testing.T) {
	d := &fakeDriver{conn: &fakeConn{}}
	p := fakeProber(d, time.Second)
	sqlite := target
	sqlite.Dialect = "sqlite"

	_, err := p.Probe(context.Background(), sqlite)

	assert.ErrorIs(t, err, ErrUnsupportedDialect)
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.False(t, p.TestConnection(context.Background(), sqlite))
	assert.Zero(t, d.opens.Load())
}

func TestProbe_DriverNotFound(t *testing.T) {
	r := NewRegistry()
	r.RegisterURL("timescale", func(host string, port int) string { return "jdbc:timescale://" + host })
	p := NewProber(Config{Registry: r})
	ts := target
	ts.Dialect = "timescale"

	url, err := p.Probe(context.Background(), ts)

	assert.Equal(t, "jdbc:timescale://db.local", url)
	assert.ErrorIs(t, err, ErrDriverNotFound)
	assert.False(t, p.TestConnection(context.Background(), ts))
}

func TestProbe_InvalidTarget(t *testing.T) {
	d := &fakeDriver{conn: &fakeConn{}}
	p := fakeProber(d, time.Second)
	bad := target
	bad.Port = 0

	_, err := p.Probe(context.Background(), bad)

	assert.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.ErrorIs(t, err, models.ErrInvalidPort)
	assert.Zero(t, d.opens.Load())
}

func TestProbe_ConnectionFailure(t *testing.T) {
	p := fakeProber(&fakeDriver{openErr: errors.New("password authentication failed")}, time.Second)

	_, err := p.Probe(context.Background(), target)

	var perr *ProbeError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StageConnection, perr.Stage)
	assert.ErrorIs(t, err, apperr.ErrExecution)
	assert.False(t, p.TestConnection(context.Background(), target))
}

func TestProbe_ValidationFailureStillCloses(t *testing.T) {
	conn := &fakeConn{pingErr: errors.New("connection reset")}
	p := fakeProber(&fakeDriver{conn: conn}, time.Second)

	_, err := p.Probe(context.Background(), target)

	var perr *ProbeError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StageValidation, perr.Stage)
	assert.True(t, conn.closed.Load())
}

func TestProbe_LoginTimeoutBoundsAttempt(t *testing.T) {
	p := fakeProber(&fakeDriver{block: true}, 100*time.Millisecond)

	start := time.Now()
	_, err := p.Probe(context.Background(), target)

	assert.ErrorIs(t, err, apperr.ErrTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestProbe_RealDriverRefused(t *testing.T) {
	// grab a free port and close it so nothing is listening
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	p := NewProber(Config{LoginTimeout: 2 * time.Second})
	local := target
	local.Host = "127.0.0.1"
	local.Port = port

	start := time.Now()
	assert.False(t, p.TestConnection(context.Background(), local), "port "+strconv.Itoa(port))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestProbe_UnknownDialectsShareOneSeries(t *testing.T) {
	p := NewProber(Config{})
	before := testutil.CollectAndCount(metrics.DBProbesTotal)
	beforeDuration := testutil.CollectAndCount(metrics.DBProbeDuration)

	for i := 0; i < 200; i++ {
		junk := target
		junk.Dialect = fmt.Sprintf("junk-%d", i)
		assert.False(t, p.TestConnection(context.Background(), junk))
	}

	assert.LessOrEqual(t, testutil.CollectAndCount(metrics.DBProbesTotal), before+1)
	assert.LessOrEqual(t, testutil.CollectAndCount(metrics.DBProbeDuration), beforeDuration+1)
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.DBProbesTotal.WithLabelValues("unsupported", "unsupported_dialect")), 200.0)
}
