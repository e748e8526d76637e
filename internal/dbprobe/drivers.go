package dbprobe

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	go_ora "github.com/sijms/go-ora/v2"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"sentinel/internal/models"
)

// Driver opens a single connection to a target.
type Driver interface {
	// Name is the client driver identifier
	Name() string
	// Open establishes a connection, giving up when ctx is done. timeout is
	// the login bound, passed on to drivers that take it in their DSN.
	Open(ctx context.Context, target models.DatabaseTarget, timeout time.Duration) (Conn, error)
}

// Conn is an open connection that can be validated and released.
type Conn interface {
	Ping(ctx context.Context) error
	Close() error
}

// DSNFunc renders a driver-native data source name
type DSNFunc func(target models.DatabaseTarget, timeout time.Duration) string

// sqlDriver opens connections through database/sql
type sqlDriver struct {
	name string
	dsn  DSNFunc
}

// SQLDriver returns a Driver backed by the database/sql driver registered as name
func SQLDriver(name string, dsn DSNFunc) Driver {
	return &sqlDriver{name: name, dsn: dsn}
}

func (d *sqlDriver) Name() string { return d.name }

func (d *sqlDriver) Open(ctx context.Context, target models.DatabaseTarget, timeout time.Duration) (Conn, error) {
	db, err := sql.Open(d.name, d.dsn(target, timeout))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &sqlConn{db: db, conn: conn}, nil
}

type sqlConn struct {
	db   *sql.DB
	conn *sql.Conn
}

func (c *sqlConn) Ping(ctx context.Context) error { return c.conn.PingContext(ctx) }

func (c *sqlConn) Close() error {
	connErr := c.conn.Close()
	dbErr := c.db.Close()
	if connErr != nil {
		return connErr
	}
	return dbErr
}

// timeoutSeconds rounds d up to whole seconds, at least 1
func timeoutSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}

// PostgresDriver connects with pgx to the "postgres" maintenance database
func PostgresDriver() Driver {
	return SQLDriver("pgx", PostgresDSN)
}

// PostgresDSN renders a pgx connection URL
func PostgresDSN(t models.DatabaseTarget, timeout time.Duration) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(t.Username, t.Password),
		Host:   net.JoinHostPort(t.Host, strconv.Itoa(t.Port)),
		Path:   "/postgres",
	}
	q := url.Values{}
	q.Set("connect_timeout", strconv.Itoa(timeoutSeconds(timeout)))
	q.Set("sslmode", "prefer")
	u.RawQuery = q.Encode()
	return u.String()
}

// MySQLDriver connects with go-sql-driver/mysql without selecting a schema
func MySQLDriver() Driver {
	return SQLDriver("mysql", MySQLDSN)
}

// MySQLDSN renders a go-sql-driver/mysql DSN
func MySQLDSN(t models.DatabaseTarget, timeout time.Duration) string {
	cfg := mysql.NewConfig()
	cfg.User = t.Username
	cfg.Passwd = t.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
	cfg.Timeout = timeout
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

// SQLServerDriver connects with microsoft/go-mssqldb
func SQLServerDriver() Driver {
	return SQLDriver("sqlserver", SQLServerDSN)
}

// SQLServerDSN renders a go-mssqldb connection URL
func SQLServerDSN(t models.DatabaseTarget, timeout time.Duration) string {
	u := url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(t.Username, t.Password),
		Host:   net.JoinHostPort(t.Host, strconv.Itoa(t.Port)),
	}
	q := url.Values{}
	q.Set("dial timeout", strconv.Itoa(timeoutSeconds(timeout)))
	q.Set("connection timeout", strconv.Itoa(timeoutSeconds(timeout)))
	u.RawQuery = q.Encode()
	return u.String()
}

// OracleDriver connects with sijms/go-ora to the XE service
func OracleDriver() Driver {
	return SQLDriver("oracle", OracleDSN)
}

// OracleDSN renders a go-ora connection URL
func OracleDSN(t models.DatabaseTarget, timeout time.Duration) string {
	return go_ora.BuildUrl(t.Host, t.Port, "XE", t.Username, t.Password, map[string]string{
		"CONNECTION TIMEOUT": strconv.Itoa(timeoutSeconds(timeout)),
	})
}

// mongoDriver connects with the official MongoDB driver
type mongoDriver struct{}

// MongoDriver returns the MongoDB driver
func MongoDriver() Driver { return mongoDriver{} }

func (mongoDriver) Name() string { return "mongo-go-driver" }

func (mongoDriver) Open(ctx context.Context, t models.DatabaseTarget, timeout time.Duration) (Conn, error) {
	opts := options.Client().
		ApplyURI(fmt.Sprintf("mongodb://%s", net.JoinHostPort(t.Host, strconv.Itoa(t.Port)))).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)
	if t.Username != "" {
		opts.SetAuth(options.Credential{Username: t.Username, Password: t.Password})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &mongoConn{client: client, timeout: timeout}, nil
}

type mongoConn struct {
	client  *mongo.Client
	timeout time.Duration
}

func (c *mongoConn) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

func (c *mongoConn) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.client.Disconnect(ctx)
}
