// Package repository implements Postgres persistence for users and tasks.
// Sentinel errors defined here let handlers map storage outcomes onto HTTP
// statuses without inspecting driver errors.
package repository

import "errors"

// ErrEmailExists is returned when a signup collides with an already
// registered email.  Handlers translate this into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

// ErrTaskNotFound is returned when no task carries the requested id.
// Handlers translate this into an HTTP 404 response.
var ErrTaskNotFound = errors.New("task not found")
