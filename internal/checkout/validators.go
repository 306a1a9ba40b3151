package checkout

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators adds the ticketnumber tag to gin's validator. Whether
// the number exists is decided by the inventory; the tag only checks shape.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		if err := v.RegisterValidation("ticketnumber", validateTicketNumber); err != nil {
			registerErr = fmt.Errorf("register ticketnumber validator: %w", err)
		}
	})
	return registerErr
}

func validateTicketNumber(fl validator.FieldLevel) bool {
	n := fl.Field().String()
	if n == "" || len(n) > 9 {
		return false
	}
	for _, r := range n {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
