package subscription

import "time"

// Subscription is a stored Web Push subscription.
type Subscription struct {
	ID        string    `yaml:"id" json:"id"`
	Endpoint  string    `yaml:"endpoint" json:"endpoint"`
	P256dh    string    `yaml:"p256dh" json:"p256dh"`
	Auth      string    `yaml:"auth" json:"auth"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
}
