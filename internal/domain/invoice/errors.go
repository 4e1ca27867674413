package invoice

import "errors"

var (
	ErrInvoiceNotFound        = errors.New("invoice not found")
	ErrInvalidStatus          = errors.New("invalid invoice status")
	ErrInvalidPaymentMethod   = errors.New("invalid payment method")
	ErrInvalidTaxRate         = errors.New("tax rate must be between 0 and 100")
	ErrAppointmentInvoiced    = errors.New("the appointment already has an invoice")
	ErrAppointmentNotBillable = errors.New("cancelled appointments cannot be invoiced")
	ErrNoRecords              = errors.New("at least one medical record is required")
	ErrRecordsNotOwned        = errors.New("medical records must belong to the client's pets")
	ErrPaidInvoiceDelete      = errors.New("paid invoices cannot be deleted")
)
