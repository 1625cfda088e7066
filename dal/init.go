package dal

import (
	"context"
	"fmt"

	"github.com/kasbot/kasbot-server/dal/do"
	"github.com/kasbot/kasbot-server/errcode"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DBTypeMySQL  = "mysql"
	DBTypeSQLite = "sqlite"

	MemoryPath = ":memory:"
)

var GlobalDBClient *gorm.DB

func GetDB(ctx context.Context) *gorm.DB {
	return GlobalDBClient.WithContext(ctx)
}

type DBConfig struct {
	// Type is either mysql or sqlite.
	Type     string
	Username string
	Password string
	// Address including the ip address and port of database (e.g. 127.0.0.1:3306)
	Address      string
	DatabaseName string
	// Path of the sqlite database file, ":memory:" keeps it in memory.
	Path string
}

func (cfg *DBConfig) dialector(withDatabase bool) (gorm.Dialector, error) {
	switch cfg.Type {
	case DBTypeMySQL, "":
		database := ""
		if withDatabase {
			database = cfg.DatabaseName
		}
		dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=Local", cfg.Username, cfg.Password,
			cfg.Address, database)
		return mysql.Open(dsn), nil
	case DBTypeSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w: empty sqlite path", errcode.ErrConfiguration)
		}
		return sqlite.Open(cfg.Path), nil
	default:
		return nil, fmt.Errorf("%w: unknown database type %q", errcode.ErrConfiguration, cfg.Type)
	}
}

// OpenDB connects to the database described by cfg.
func OpenDB(cfg *DBConfig) (*gorm.DB, error) {
	dialector, err := cfg.dialector(true)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	if cfg.Type == DBTypeSQLite && cfg.Path == MemoryPath {
		// Every connection to :memory: opens a distinct database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// OpenMemoryDB returns a migrated in-memory sqlite database.
func OpenMemoryDB() (*gorm.DB, error) {
	db, err := OpenDB(&DBConfig{Type: DBTypeSQLite, Path: MemoryPath})
	if err != nil {
		return nil, err
	}
	if err := CreateTables(db); err != nil {
		return nil, err
	}
	return db, nil
}

func InitDB(cfg *DBConfig, autoCreate bool) error {
	if autoCreate && cfg.Type != DBTypeSQLite {
		err := CreateDatabase(cfg)
		if err != nil {
			return err
		}
	}

	if cfg.Type == DBTypeSQLite {
		log.Infof("Opening sqlite database %v...", cfg.Path)
	} else {
		log.Infof("Connecting to database %v at %v...", cfg.DatabaseName, cfg.Address)
	}

	db, err := OpenDB(cfg)
	if err != nil {
		return err
	}

	if autoCreate {
		err = CreateTables(db)
		if err != nil {
			return err
		}
	}

	GlobalDBClient = db

	log.Infof("Successfully connect to database")

	return nil
}

func CreateDatabase(cfg *DBConfig) error {
	log.Infof("Creating database %s...", cfg.DatabaseName)

	dialector, err := cfg.dialector(false)
	if err != nil {
		return err
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return err
	}

	createSQL := fmt.Sprintf(
		"CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4;",
		cfg.DatabaseName,
	)

	err = db.Exec(createSQL).Error
	if err != nil {
		log.Infof("Unable to create database %s...", cfg.DatabaseName)
		return err
	}
	return nil
}

func CreateTables(db *gorm.DB) error {
	tables := []struct {
		name  string
		model interface{}
	}{
		{"meta_infos", &do.MetaInfo{}},
		{"user_wallet_infos", &do.UserWalletInfo{}},
		{"tip_infos", &do.TipInfo{}},
	}

	for _, table := range tables {
		log.Infof("Creating table %v...", table.name)
		err := db.AutoMigrate(table.model)
		if err != nil {
			log.Infof("Fail to create table %v", table.name)
			return err
		}
	}
	return nil
}
