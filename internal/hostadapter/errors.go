package hostadapter

import "errors"

var (
	ErrJailNotFound      = errors.New("jail not found on host")
	ErrJailAlreadyExists = errors.New("jail already exists on host")
	ErrJailStartFailed   = errors.New("failed to start jail")
	ErrJailStopFailed    = errors.New("failed to stop jail")
	ErrExecFailed        = errors.New("command exec inside jail failed")

	ErrBridgeCreateFailed = errors.New("failed to create bridge device")
	ErrBridgeNotFound     = errors.New("bridge device not found")
	ErrEpairCreateFailed  = errors.New("failed to create interface pair")
	ErrInterfaceNotFound  = errors.New("interface not found")

	ErrAnchorLoadFailed   = errors.New("failed to load pf anchor rules")
	ErrAnchorUnloadFailed = errors.New("failed to unload pf anchor rules")

	ErrArchiveExtractFailed = errors.New("failed to extract archive")
	ErrFetchFailed          = errors.New("failed to fetch remote resource")
)
