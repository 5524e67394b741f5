package db

import "gorm.io/gorm"

type Repositories struct {
	KV *KVRepository
}

func NewRepositories(database *gorm.DB) *Repositories {
	return &Repositories{
		KV: NewKVRepository(database),
	}
}
