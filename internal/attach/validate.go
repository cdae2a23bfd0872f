package attach

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alphabot-ai/fritter/internal/model"
)

// MaxContentLength bounds comment and freet bodies, in characters.
const MaxContentLength = 140

var (
	validate        = newValidator()
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidateContent requires at least one non-space character and at most
// MaxContentLength characters of raw input.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return &ValidationError{Field: "content", Message: "Content must be at least one character long."}
	}
	if err := validate.Var(content, "max="+strconv.Itoa(MaxContentLength)); err != nil {
		return &ValidationError{Field: "content", Message: fmt.Sprintf("Content must be no more than %d characters.", MaxContentLength), TooLong: true}
	}
	return nil
}

func ValidateEmotion(e model.Emotion) error {
	if err := validate.Var(string(e), "required,oneof="+model.EmotionList()); err != nil {
		return &ValidationError{Field: "emotion", Message: "Emotion must be one of: " + model.EmotionList() + "."}
	}
	return nil
}

func ValidateUsername(username string) error {
	if err := validate.Var(username, "required,max=32,username"); err != nil {
		return &ValidationError{Field: "username", Message: "Username must be 1-32 letters, digits, '_' or '-'."}
	}
	return nil
}

// MaxPasswordBytes is the most bcrypt will hash.
const MaxPasswordBytes = 72

func ValidatePassword(password string) error {
	if err := validate.Var(password, "required"); err != nil {
		return &ValidationError{Field: "password", Message: "Password must not be empty."}
	}
	if len(password) > MaxPasswordBytes {
		return &ValidationError{Field: "password", Message: fmt.Sprintf("Password must be at most %d bytes.", MaxPasswordBytes)}
	}
	return nil
}
