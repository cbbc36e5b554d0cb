package ecs

import "errors"

var (
	ErrCapacity           = errors.New("entity capacity reached")
	ErrNotFound           = errors.New("entity not found")
	ErrInactive           = errors.New("entity is inactive")
	ErrDuplicateComponent = errors.New("component kind already attached")
	ErrNoComponent        = errors.New("component not attached")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUnknownEnum        = errors.New("unknown enum value")
	ErrInventoryFull      = errors.New("inventory full")
	ErrInsufficientItems  = errors.New("not enough items")
	ErrInsufficientFunds  = errors.New("not enough currency")
	ErrRelationshipsFull  = errors.New("relationship table full")
)
