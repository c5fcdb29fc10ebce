package repositories

import "errors"

var (
	ErrTileNotFound     = errors.New("tile not found")
	ErrSupplierNotFound = errors.New("supplier not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidID        = errors.New("invalid id")
)
