package model

import (
	"time"
)

type UserRole string

const (
	Learner    UserRole = "learner"
	Instructor UserRole = "instructor"
	Admin      UserRole = "admin"
)

// UserCertificate 用户已获得的证书
type UserCertificate struct {
	ID            string    `json:"id"`
	DataConclusao time.Time `json:"data_conclusao"`
}

// swagger:model User
type User struct {
	UUIDBase
	Nome         string            `gorm:"size:100;not null" json:"nome"`
	Email        string            `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Setor        string            `gorm:"size:64;index" json:"setor"`
	Cargo        string            `gorm:"size:100" json:"cargo"`
	Role         UserRole          `gorm:"size:20;default:'learner'" json:"role"`
	Certificados []UserCertificate `gorm:"serializer:json" json:"certificados"`
}

func (User) TableName() string {
	return "users"
}

// HasCertificate 是否已持有该证书
func (u *User) HasCertificate(certID string) bool {
	for _, c := range u.Certificados {
		if c.ID == certID {
			return true
		}
	}
	return false
}

// Identity 当前会话身份，由外部认证提供
type Identity struct {
	ID    string   `json:"id"`
	Nome  string   `json:"nome"`
	Setor string   `json:"setor"`
	Role  UserRole `json:"role"`
}

func (i Identity) IsStaff() bool {
	return i.Role == Admin || i.Role == Instructor
}
