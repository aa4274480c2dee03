package jsonenc

import "errors"

var (
	errNotArray = errors.New("expected top-level json array")
)
