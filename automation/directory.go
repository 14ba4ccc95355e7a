package automation

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"ascentcrm/models"
)

// ClientInfo is the directory's read view of a client.
type ClientInfo struct {
	Email  string
	Name   string
	Source string
}

// ClientDirectory resolves delivery details for a client.
type ClientDirectory interface {
	Lookup(clientID uint) (*ClientInfo, error)
}

// GormDirectory serves lookups from the clients table.
type GormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

func (d *GormDirectory) Lookup(clientID uint) (*ClientInfo, error) {
	var client models.Client
	if err := d.db.First(&client, clientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrClientNotFound, clientID)
		}
		return nil, err
	}

	name := client.FirstName
	if client.LastName != "" {
		if name != "" {
			name += " "
		}
		name += client.LastName
	}
	return &ClientInfo{Email: client.Email, Name: name, Source: client.Source}, nil
}
