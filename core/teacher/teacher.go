// Package teacher accepts applications from people who want to teach on the
// platform.
package teacher

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

type Address struct {
	Street1 string `db:"address_street1"`
	Street2 string `db:"address_street2"`
	City    string `db:"address_city"`
	State   string `db:"address_state"`
	Zip     string `db:"address_zip"`
}

type Teacher struct {
	ID            string    `json:"id" db:"teacher_id"`
	FirstName     string    `json:"firstName" db:"first_name"`
	LastName      string    `json:"lastName" db:"last_name"`
	PhotoPath     string    `json:"photoPath" db:"photo_path"`
	Gender        string    `json:"gender" db:"gender"`
	Age           int       `json:"age" db:"age"`
	Email         string    `json:"email" db:"email"`
	Phone         string    `json:"phone" db:"phone"`
	Address       `json:"address"`
	Qualification string    `json:"qualification" db:"qualification"`
	TeachingArea  string    `json:"teachingArea" db:"teaching_area"`
	Classes       string    `json:"classes" db:"classes"`
	Subjects      string    `json:"subjects" db:"subjects"`
	Experience    string    `json:"experience" db:"experience"`
	Location      string    `json:"location" db:"location"`
	Referral      string    `json:"referral" db:"referral"`
	Comments      string    `json:"comments" db:"comments"`
	CVPath        string    `json:"cvPath" db:"cv_path"`
	Agree         bool      `json:"agree" db:"agree"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

// TeacherNew is the registration form. The validator field names double as
// the messages shown to the applicant.
type TeacherNew struct {
	FirstName     string `validate:"required,max=100"`
	LastName      string `validate:"required,max=100"`
	Gender        string `validate:"omitempty,oneof=male female other"`
	Age           int    `validate:"required,gte=18,lte=120"`
	Email         string `validate:"required,email"`
	Phone         string `validate:"omitempty,max=32"`
	Street1       string
	Street2       string
	City          string
	State         string
	Zip           string `validate:"omitempty,max=16"`
	Qualification string `validate:"required"`
	TeachingArea  string
	Classes       string
	Subjects      string `validate:"required"`
	Experience    string
	Location      string
	Referral      string
	Comments      string `validate:"max=2000"`
	Agree         bool   `validate:"required"`
}

// parseForm reads the text fields of a parsed registration form. Address
// parts are posted as address[street1] and so on.
func parseForm(r *http.Request) TeacherNew {
	v := func(key string) string { return strings.TrimSpace(r.FormValue(key)) }

	tn := TeacherNew{
		FirstName:     v("firstName"),
		LastName:      v("lastName"),
		Gender:        strings.ToLower(v("gender")),
		Email:         v("email"),
		Phone:         v("phone"),
		Street1:       v("address[street1]"),
		Street2:       v("address[street2]"),
		City:          v("address[city]"),
		State:         v("address[state]"),
		Zip:           v("address[zip]"),
		Qualification: v("qualification"),
		TeachingArea:  v("teachingArea"),
		Classes:       v("classes"),
		Subjects:      v("subjects"),
		Experience:    v("experience"),
		Location:      v("location"),
		Referral:      v("referral"),
		Comments:      v("comments"),
	}

	// A non-numeric age is left at zero and fails validation.
	tn.Age, _ = strconv.Atoi(v("age"))

	switch strings.ToLower(v("agree")) {
	case "on", "true", "1", "yes":
		tn.Agree = true
	}
	return tn
}
