// Package validator provides small, composable validation rules.
//
//	err := validator.Apply(
//		validator.ValidEmail("email", email),
//		validator.MinLen("password", password, 8),
//	)
//	if ve := validator.Extract(err); ve.Has("email") {
//		// show inline error
//	}
package validator
