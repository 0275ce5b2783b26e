package ds

import "time"

// DnsRecord is created alongside the first registration of a domain.
type DnsRecord struct {
	ID              uint   `gorm:"primaryKey"`
	ClientServiceID uint   `gorm:"not null;index"`
	DomainName      string `gorm:"type:varchar(253);not null;index"`
	Type            string `gorm:"type:varchar(10);not null"` // A, CNAME, MX, TXT
	Host            string `gorm:"type:varchar(253);not null"`
	Value           string `gorm:"type:varchar(500);not null"`
	Priority        *int   // MX only
	TTL             int    `gorm:"type:int;default:3600;not null"`
	CreatedAt       time.Time
}
