package client

import "errors"

var (
	ErrClientNotFound      = errors.New("client not found")
	ErrClientAlreadyExists = errors.New("a client with this email already exists")
	ErrClientHasPets       = errors.New("client cannot be deleted while it has pets")
	ErrUserAlreadyLinked   = errors.New("user is already linked to another client")
)
