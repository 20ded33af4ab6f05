package gormstore

import "time"

type UserModel struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	Email     string `gorm:"uniqueIndex;not null"`
	Name      string
	Role      string `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UserModel) TableName() string { return "users" }

type OrganizationModel struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	UserID    string `gorm:"uniqueIndex;not null"`
	Name      string `gorm:"not null"`
	CreatedAt time.Time
}

func (OrganizationModel) TableName() string { return "organizations" }

type StudentModel struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	UserID    string `gorm:"uniqueIndex;not null"`
	FirstName string
	LastName  string
	CreatedAt time.Time
}

func (StudentModel) TableName() string { return "students" }

type ExperienceModel struct {
	ID               string `gorm:"primaryKey;type:varchar(64)"`
	Title            string `gorm:"not null"`
	OrganizationID   string `gorm:"index;not null"`
	StudentID        string `gorm:"index;not null"`
	Status           string `gorm:"type:varchar(20);not null"`
	VerifiedBy       *string
	VerifiedAt       *time.Time
	VerificationNote string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (ExperienceModel) TableName() string { return "experiences" }

type PortfolioModel struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	StudentID string `gorm:"index;not null"`
	Title     string
	IsPublic  bool
	CreatedAt time.Time
}

func (PortfolioModel) TableName() string { return "portfolios" }

type NotificationModel struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	UserID    string `gorm:"index:idx_notifications_user_read;not null"`
	Title     string `gorm:"not null"`
	Message   string `gorm:"not null"`
	Type      string `gorm:"type:varchar(40);not null"`
	ActionURL string
	Metadata  *string `gorm:"type:jsonb"`
	IsRead    bool    `gorm:"index:idx_notifications_user_read"`
	ReadAt    *time.Time
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (NotificationModel) TableName() string { return "notifications" }

type PortfolioViewModel struct {
	ID          string `gorm:"primaryKey;type:varchar(64)"`
	PortfolioID string `gorm:"index;not null"`
	ViewerID    *string
	IPAddress   string
	UserAgent   string
	Referrer    string
	ViewedAt    time.Time `gorm:"index"`
}

func (PortfolioViewModel) TableName() string { return "portfolio_views" }

func allModels() []interface{} {
	return []interface{}{
		&UserModel{},
		&OrganizationModel{},
		&StudentModel{},
		&ExperienceModel{},
		&PortfolioModel{},
		&NotificationModel{},
		&PortfolioViewModel{},
	}
}
