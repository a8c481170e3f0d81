package httpapi

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/nullable"
	"github.com/oapi-codegen/runtime/types"
)

var (
	mobilePattern    = regexp.MustCompile(`^01[3-9]\d{8}$`)
	imageTypePattern = regexp.MustCompile(`^image/(png|jpg|jpeg)$`)
	imageFilePattern = regexp.MustCompile(`(?i)^.+\.(png|jpg|jpeg)$`)
)

// minimumAge is the youngest an applicant may be at registration.
const minimumAge = 18

// newValidator builds the request-shape validator. now is consulted by the "adult" rule.
func newValidator(now func() time.Time) *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		if d, ok := f.Interface().(types.Date); ok {
			return d.Time
		}
		return nil
	}, types.Date{})

	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("imagetype", func(fl validator.FieldLevel) bool {
		return imageTypePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("imagefile", func(fl validator.FieldLevel) bool {
		return imageFilePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("adult", func(fl validator.FieldLevel) bool {
		dob, ok := fl.Field().Interface().(time.Time)
		if !ok || dob.IsZero() {
			return false
		}
		return !dob.After(now().AddDate(-minimumAge, 0, 0))
	})

	v.RegisterStructValidation(validateApplyVehicle, applyRequest{})
	return v
}

// validateApplyVehicle enforces the conditional vehicle and driver fields of an application.
func validateApplyVehicle(sl validator.StructLevel) {
	req := sl.Current().Interface().(applyRequest)
	if req.IncludeVehicle == nil || !*req.IncludeVehicle {
		return
	}

	requireText(sl, req.VehicleNo, "vehicleNo", "VehicleNo")
	selfDriven, err := req.SelfDriven.Get()
	if err != nil {
		sl.ReportError(req.SelfDriven, "selfDriven", "SelfDriven", "required", "")
		return
	}
	if !selfDriven {
		requireText(sl, req.DriverName, "driverName", "DriverName")
		requireText(sl, req.DriverLicenseNo, "driverLicenseNo", "DriverLicenseNo")
	}
}

func requireText(sl validator.StructLevel, field nullable.Nullable[string], jsonName, name string) {
	s, err := field.Get()
	switch {
	case err != nil || strings.TrimSpace(s) == "":
		sl.ReportError(field, jsonName, name, "required", "")
	case len(s) > 64:
		sl.ReportError(field, jsonName, name, "max", "64")
	}
}

// validationMessages renders one human readable message per failed field.
func validationMessages(err error) []string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, messageFor(fe))
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", f)
	case "max":
		return fmt.Sprintf("%q must be at most %s", f, fe.Param())
	case "min":
		return fmt.Sprintf("%q must be at least %s", f, fe.Param())
	case "oneof":
		return fmt.Sprintf("%q must be one of [%s]", f, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "mobile":
		return fmt.Sprintf("%q must be a valid mobile phone number", f)
	case "adult":
		return fmt.Sprintf("%q must be at least %d years ago", f, minimumAge)
	case "imagetype":
		return fmt.Sprintf("%q must be a png or jpeg content type", f)
	case "imagefile":
		return fmt.Sprintf("%q must be a png or jpeg file name", f)
	case "len", "numeric":
		return fmt.Sprintf("%q must be a date in DDMMYYYY format", f)
	case "url", "startswith":
		return fmt.Sprintf("%q must be an https URL", f)
	default:
		return fmt.Sprintf("%q is invalid", f)
	}
}
