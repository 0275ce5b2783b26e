package ds

// Client is read by the core only to check existence and to resolve names
// for search and reminders. Client records are managed elsewhere.
type Client struct {
	ID             uint   `gorm:"primaryKey"`
	Name           string `gorm:"type:varchar(150);not null"`
	Email          string `gorm:"type:varchar(100)"`
	AccountManager string `gorm:"type:varchar(100)"`
	IsDeleted      bool   `gorm:"type:boolean;default:false;not null"`
}
