package validate

import (
	"errors"
	"testing"
)

func TestCheckID(t *testing.T) {
	if err := CheckID(GenerateID()); err != nil {
		t.Fatalf("generated id rejected: %v", err)
	}

	for _, id := range []string{"", "64b7f0c2e4b0a1a2b3c4d5e6", "not-an-id"} {
		if err := CheckID(id); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("id %q: expected ErrInvalidID, got %v", id, err)
		}
	}
}

func TestCheck(t *testing.T) {
	type input struct {
		Title string `json:"title" validate:"required"`
		Price int    `json:"price" validate:"gte=0,lte=10000"`
	}

	if err := Check(input{Title: "Go", Price: 10}); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}

	err := Check(input{Price: 10})
	if err == nil || err.Error() != "Title is a required field" {
		t.Fatalf("unexpected error: %v", err)
	}

	err = Check(input{Title: "Go", Price: 20000})
	if err == nil {
		t.Fatal("expected price bound to be enforced")
	}
}
