package user

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("a user with this email already exists")
)

type User struct {
	ID              string    `json:"id" db:"user_id"`
	Name            string    `json:"name" db:"name"`
	Email           string    `json:"email" db:"email"`
	Role            string    `json:"role" db:"role"`
	PasswordHash    []byte    `json:"-" db:"password_hash"`
	PhotoURL        string    `json:"photoUrl" db:"photo_url"`
	EnrolledCourses []string  `json:"enrolledCourses" db:"-"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

type UserNew struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=student instructor"`
}

type UserUp struct {
	Name     *string `json:"name" validate:"omitempty,min=1"`
	PhotoURL *string `json:"photoUrl" validate:"omitempty,url"`
}

// Creator is the public projection of a course author.
type Creator struct {
	ID       string `json:"id" db:"user_id"`
	Name     string `json:"name" db:"name"`
	PhotoURL string `json:"photoUrl" db:"photo_url"`
}

func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u User) CheckPassword(password string) bool {
	if len(u.PasswordHash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) == nil
}
