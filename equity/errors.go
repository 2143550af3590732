package equity

import "errors"

var (
	ErrBadCard      = errors.New("equity: invalid card")
	ErrBadRange     = errors.New("equity: invalid range")
	ErrBadBoard     = errors.New("equity: invalid board")
	ErrCardConflict = errors.New("equity: ranges and board cannot be dealt without sharing cards")
)
