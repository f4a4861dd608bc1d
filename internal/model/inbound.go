package model

// Inbound wire shapes. Pointer fields distinguish an absent field from a
// zero value during validation.

type InboundDeposit struct {
	User  *int     `json:"user"`
	ID    *int     `json:"id"`
	Peso  *float64 `json:"peso"`
	Color *string  `json:"color"`
	QR    *string  `json:"qr"`
}

type InboundSensorReading struct {
	Temperatura *float64 `json:"temperatura"`
}
