package databaseaccess

import (
	"github.com/Ethernal-Tech/vista-bridge/bridge/core"
)

func NewDatabase(filePath string) (core.Database, error) {
	db := &BBoltDatabase{}

	if err := db.Init(filePath); err != nil {
		return nil, err
	}

	return db, nil
}
