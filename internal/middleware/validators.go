package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/ohfdesk/ohfdesk/internal/modules/model"
)

// RegisterValidators adds the domain value validators to gin's binding engine:
// ticket_status, ticket_priority, activity_type, member_role and profile_role.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	rules := map[string]func(string) bool{
		"ticket_status":   model.ValidStatus,
		"ticket_priority": model.ValidPriority,
		"activity_type":   model.ValidActivityType,
		"member_role":     model.ValidMemberRole,
		"profile_role":    model.ValidProfileRole,
	}
	for tag, fn := range rules {
		fn := fn
		err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return fn(fl.Field().String())
		})
		if err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}
