package sqlkit

import (
	"database/sql"
	"net"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// openMySQL translates a mysql:// URL into a driver configuration and
// opens the handle through the driver's connector.
func openMySQL(cfg Config) (*sql.DB, error) {
	mc, err := mysqlConfig(cfg)
	if err != nil {
		return nil, err
	}

	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, &Error{
			Code:    CodeConfig,
			Message: "invalid mysql configuration: " + err.Error(),
			Op:      "Open",
			Cause:   err,
		}
	}
	return sql.OpenDB(connector), nil
}

// mysqlConfig maps the connection URL and timeouts onto the driver config.
// URL query parameters pass through as driver parameters (e.g. tls=true).
func mysqlConfig(cfg Config) (*mysql.Config, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, &Error{
			Code:    CodeConfig,
			Message: "invalid mysql URL",
			Op:      "Open",
			Cause:   err,
		}
	}

	mc := mysql.NewConfig()
	mc.Net = "tcp"

	host := u.Hostname()
	if host == "" {
		host = "127.0.0.1"
	}
	port := u.Port()
	if port == "" {
		port = "3306"
	}
	mc.Addr = net.JoinHostPort(host, port)

	mc.DBName = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		mc.User = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			mc.Passwd = pw
		}
	}

	// DATETIME columns should scan as time.Time, not []byte
	mc.ParseTime = true
	mc.Timeout = cfg.DialTimeout
	mc.ReadTimeout = cfg.ReadTimeout
	mc.WriteTimeout = cfg.WriteTimeout

	if q := u.Query(); len(q) > 0 {
		mc.Params = make(map[string]string, len(q))
		for k, vs := range q {
			if len(vs) > 0 {
				mc.Params[k] = vs[0]
			}
		}
	}

	return mc, nil
}
