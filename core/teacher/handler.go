package teacher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"os"
	"path/filepath"
	"time"

	"github.com/irsalhamdi/learnhub/api/background"
	"github.com/irsalhamdi/learnhub/api/web"
	"github.com/irsalhamdi/learnhub/api/weberr"
	"github.com/irsalhamdi/learnhub/email"
	"github.com/irsalhamdi/learnhub/validate"
	"github.com/jmoiron/sqlx"
)

const formMemory = 1 << 20

type created struct {
	ID string `json:"id"`
}

// HandleRegister stores a multipart teacher application with its optional
// photo and cv, then acknowledges it by email.
func HandleRegister(db *sqlx.DB, up Uploads, mailer email.Mailer, bg *background.Background) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		r.Body = http.MaxBytesReader(w, r.Body, 2*up.MaxSize+formMemory)
		if err := r.ParseMultipartForm(formMemory); err != nil {
			return weberr.BadRequest(fmt.Errorf("parsing registration form: %w", err))
		}
		defer r.MultipartForm.RemoveAll()

		tn := parseForm(r)
		if err := validate.Check(tn); err != nil {
			return weberr.InvalidInput(err)
		}

		t := Teacher{
			ID:        validate.GenerateID(),
			FirstName: tn.FirstName,
			LastName:  tn.LastName,
			Gender:    tn.Gender,
			Age:       tn.Age,
			Email:     tn.Email,
			Phone:     tn.Phone,
			Address: Address{
				Street1: tn.Street1,
				Street2: tn.Street2,
				City:    tn.City,
				State:   tn.State,
				Zip:     tn.Zip,
			},
			Qualification: tn.Qualification,
			TeachingArea:  tn.TeachingArea,
			Classes:       tn.Classes,
			Subjects:      tn.Subjects,
			Experience:    tn.Experience,
			Location:      tn.Location,
			Referral:      tn.Referral,
			Comments:      tn.Comments,
			Agree:         tn.Agree,
			CreatedAt:     time.Now().UTC(),
		}

		var err error
		if t.PhotoPath, err = saveFile(r, up, "photo", "photos"); err != nil {
			return err
		}
		if t.CVPath, err = saveFile(r, up, "cv", "cvs"); err != nil {
			removeFiles(up, t.PhotoPath)
			return err
		}

		if err := Create(ctx, db, t); err != nil {
			removeFiles(up, t.PhotoPath, t.CVPath)
			return err
		}

		bg.Go("teacher-registration-mail", func(ctx context.Context) error {
			msg, err := email.RegistrationMessage(
				mail.Address{Name: t.FirstName + " " + t.LastName, Address: t.Email},
				email.Registration{FirstName: t.FirstName},
			)
			if err != nil {
				return err
			}
			return mailer.Send(ctx, msg)
		})

		return web.Respond(ctx, w, created{ID: t.ID}, http.StatusCreated)
	}
}

// saveFile stores the optional file field and returns "" when it is absent.
func saveFile(r *http.Request, up Uploads, field, sub string) (string, error) {
	f, fh, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", weberr.BadRequest(fmt.Errorf("reading %s: %w", field, err))
	}
	f.Close()

	path, err := up.Save(sub, fh)
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return "", weberr.InvalidInput(err)
		}
		return "", fmt.Errorf("saving %s: %w", field, err)
	}
	return path, nil
}

func removeFiles(up Uploads, paths ...string) {
	for _, p := range paths {
		if p != "" {
			os.Remove(filepath.Join(up.Dir, p))
		}
	}
}
