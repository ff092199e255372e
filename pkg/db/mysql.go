package db

import (
	"context"
	"database/sql"
	"sync"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/retroam/agileai/cfg"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Mysql wraps a lazily opened gorm connection. The first Db call opens the
// pool; later calls reuse it, including the error of a failed open.
type Mysql struct {
	Config  *cfg.Config
	once    sync.Once
	db      *gorm.DB
	initErr error
}

func NewMysql(config *cfg.Config) (*Mysql, error) {
	return &Mysql{
		Config: config,
	}, nil
}

func (m *Mysql) DSN() string {
	config := mysqlDriver.Config{
		User:                 m.Config.Mysql.Username,
		Passwd:               m.Config.Mysql.Password,
		DBName:               m.Config.Mysql.Database,
		Addr:                 m.Config.Mysql.Host + ":" + m.Config.Mysql.Port,
		Net:                  "tcp",
		ParseTime:            true,
		AllowNativePasswords: true,
		Params: map[string]string{
			"charset": "utf8mb4",
		},
	}
	return config.FormatDSN()
}

func (m *Mysql) Db() (*gorm.DB, error) {
	m.once.Do(func() {
		var db *gorm.DB
		db, m.initErr = gorm.Open(mysql.Open(m.DSN()), &gorm.Config{})
		if m.initErr != nil {
			return
		}

		var sqlDB *sql.DB
		sqlDB, m.initErr = db.DB()
		if m.initErr != nil {
			return
		}

		sqlDB.SetMaxIdleConns(m.Config.Mysql.MaxIdleConnection)
		sqlDB.SetMaxOpenConns(m.Config.Mysql.MaxOpenConnection)
		sqlDB.SetConnMaxLifetime(time.Duration(m.Config.Mysql.MaxLifeTimeConnection) * time.Second)

		m.db = db
	})
	return m.db, m.initErr
}

func (m *Mysql) Ping(ctx context.Context) error {
	db, err := m.Db()
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (m *Mysql) Close() error {
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

func (m *Mysql) Migrate(models ...interface{}) error {
	db, err := m.Db()
	if err != nil {
		return err
	}
	return db.AutoMigrate(models...)
}
