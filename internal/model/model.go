package model

import (
	"time"

	"github.com/retroam/agileai/cfg"
	"github.com/retroam/agileai/pkg/db"
	"github.com/retroam/agileai/pkg/log"
)

type Model struct {
	Config    *cfg.Config `gorm:"-"`
	Logger    log.Logger  `gorm:"-"`
	Mysql     *db.Mysql   `gorm:"-"`
	ID        uint        `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
