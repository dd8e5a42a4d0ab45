package teacher

import (
	"context"
	"fmt"

	"github.com/irsalhamdi/learnhub/database"
	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, t Teacher) error {
	const q = `
	INSERT INTO teachers
		(teacher_id, first_name, last_name, photo_path, gender, age, email, phone,
		 address_street1, address_street2, address_city, address_state, address_zip,
		 qualification, teaching_area, classes, subjects, experience, location,
		 referral, comments, cv_path, agree, created_at)
	VALUES
		(:teacher_id, :first_name, :last_name, :photo_path, :gender, :age, :email, :phone,
		 :address_street1, :address_street2, :address_city, :address_state, :address_zip,
		 :qualification, :teaching_area, :classes, :subjects, :experience, :location,
		 :referral, :comments, :cv_path, :agree, :created_at)`

	if err := database.NamedExecContext(ctx, db, q, t); err != nil {
		return fmt.Errorf("inserting teacher application: %w", err)
	}
	return nil
}
