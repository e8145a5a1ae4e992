package services

import "github.com/go-playground/validator/v10"

// Shared validator instance for service commands; struct tags live on
// the command types in domain.
var validate = validator.New()
