// Package validator provides small, composable field validation rules.
//
// A Rule pairs a check with the ValidationError reported when the check
// fails. Apply evaluates rules in order and collects every failure; ApplyFirst
// keeps only the first failure per field, which is what form UIs show.
//
//	err := validator.ApplyFirst(
//		validator.Required("email", email).WithMessage("Email is required"),
//		validator.EmailShape("email", email).WithMessage("Please enter a valid email"),
//		validator.MinLen("password", password, 6),
//	)
//	if errs := validator.ExtractValidationErrors(err); errs.Has("email") {
//		// ...
//	}
package validator
