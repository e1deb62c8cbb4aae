package enums

// PaymentStatus is the processing outcome recorded on a payment.
// The processor is a mock, so every persisted payment is Success.
type PaymentStatus string

const PaymentStatusSuccess PaymentStatus = "Success"

func (p PaymentStatus) String() string { return string(p) }
