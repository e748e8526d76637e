package dbprobe

import (
	"net/url"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/models"
)

var target = models.DatabaseTarget{
	Dialect:  "postgresql",
	Host:     "db.local",
	Port:     5432,
	Username: "monitor",
	Password: "p@ss:word/1",
	Name:     "primary",
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(target, 5*time.Second)

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db.local:5432", u.Host)
	assert.Equal(t, "/postgres", u.Path)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss:word/1", pw)
	assert.Equal(t, "5", u.Query().Get("connect_timeout"))
}

func TestMySQLDSN(t *testing.T) {
	dsn := MySQLDSN(target, 5*time.Second)

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "tcp", cfg.Net)
	assert.Equal(t, "db.local:5432", cfg.Addr)
	assert.Equal(t, "monitor", cfg.User)
	assert.Equal(t, "p@ss:word/1", cfg.Passwd)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Empty(t, cfg.DBName)
}

func TestSQLServerDSN(t *testing.T) {
	u, err := url.Parse(SQLServerDSN(target, 1500*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, "sqlserver", u.Scheme)
	assert.Equal(t, "2", u.Query().Get("dial timeout"))
}

func TestOracleDSN(t *testing.T) {
	dsn := OracleDSN(target, 5*time.Second)
	assert.Contains(t, dsn, "db.local:5432/XE")
}

func TestTimeoutSeconds(t *testing.T) {
	assert.Equal(t, 1, timeoutSeconds(0))
	assert.Equal(t, 1, timeoutSeconds(200*time.Millisecond))
	assert.Equal(t, 5, timeoutSeconds(5*time.Second))
	assert.Equal(t, 6, timeoutSeconds(5100*time.Millisecond))
}
