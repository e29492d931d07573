package api

import "github.com/go-playground/validator/v10"

// validate checks outbound request payloads against their struct tags
// before any bytes leave the client. The backend re-validates, but a
// malformed payload should never produce a network call.
var validate = validator.New()
