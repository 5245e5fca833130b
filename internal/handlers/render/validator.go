package render

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nkiryanov/studyplanner/internal/models"
)

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	_ = validate.RegisterValidation("priority", oneOf(models.PriorityHigh, models.PriorityMedium, models.PriorityLow))
	_ = validate.RegisterValidation("taskstatus", oneOf(models.TaskTodo, models.TaskInProgress, models.TaskCompleted, models.TaskExpired))
	_ = validate.RegisterValidation("focusstatus", oneOf(models.FocusCompleted, models.FocusEndedEarly, models.FocusSkipped, models.FocusIdle))

	// Return on 'TagName' json tag instead of struct name
	// Look at documentation of 'RegisterTagNameFunc' for more details
	validate.RegisterTagNameFunc(useJSONTagNames)

	return validate
}

func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

// oneOf accepts string fields (or pointers to them) equal to one of the allowed values
// Values may contain spaces so builtin 'oneof' tag can't be used
func oneOf[T ~string](allowed ...T) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, a := range allowed {
			if value == string(a) {
				return true
			}
		}
		return false
	}
}
