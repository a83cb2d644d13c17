package services

import "errors"

var (
	ErrCatalogEmpty     = errors.New("no content available")
	ErrContentNotFound  = errors.New("content not found")
	ErrDuplicateContent = errors.New("content already exists")
	ErrFileTooLarge     = errors.New("file exceeds the size limit")
	ErrTokenNotFound    = errors.New("share token not found")
	ErrTokenExpired     = errors.New("share token expired")
	ErrDeliveryFailed   = errors.New("delivery failed")
)
