package users

import "time"

type User struct {
	ID       uint    `gorm:"primaryKey"`
	Name     string
	Email    string  `gorm:"not null;uniqueIndex:idx_users_email"`
	Password *string `gorm:""`
	Role     string  `gorm:"type:varchar(20);not null;default:'user'"`

	StripeCustomerID *string `gorm:"column:stripe_customer_id;uniqueIndex:idx_users_stripe_customer_id"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
