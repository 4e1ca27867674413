package medical_record

import "errors"

var (
	ErrRecordNotFound        = errors.New("medical record not found")
	ErrAttachmentNotFound    = errors.New("attachment not found")
	ErrInvalidRecordType     = errors.New("invalid medical record type")
	ErrInvalidQuantity       = errors.New("service quantity must be at least 1")
	ErrUnsupportedAttachment = errors.New("attachments must be pdf, jpg, jpeg or png")
	ErrAttachmentTooLarge    = errors.New("attachment exceeds 10 MB")
	ErrRecordAlreadyBilled   = errors.New("medical record is already billed")
	ErrStorageUnavailable    = errors.New("attachment storage is not configured")
)
