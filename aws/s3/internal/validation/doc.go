// Package validation provides centralized input validation logic.
// This includes bucket name validation and object key validation.
//
// All user inputs are validated before a request is signed so that invalid
// names fail locally instead of producing opaque store errors.
package validation
