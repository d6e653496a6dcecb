package domain

import "errors"

var (
	ErrValidation    = errors.New("validation failed")
	ErrOrderNotFound = errors.New("order not found")
	ErrStateConflict = errors.New("state conflict")
	ErrIngressFailed = errors.New("ingress failed")
	ErrPoisonEvent   = errors.New("poison event")
)
