package storerrros

import "errors"

var (
	ErrBookNoExist     = errors.New("book does not exist")
	ErrUserExists      = errors.New("user already exists")
	ErrUserNoExist     = errors.New("user does not exist")
	ErrInvalidPassword = errors.New("invalid password")
)
