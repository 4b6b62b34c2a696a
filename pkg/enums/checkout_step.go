package enums

// CheckoutStep tracks where a checkout draft sits in the step sequence.
type CheckoutStep string

const (
	CheckoutStepAddressEntry CheckoutStep = "address_entry"
	CheckoutStepPaymentEntry CheckoutStep = "payment_entry"
	CheckoutStepSubmitting   CheckoutStep = "submitting"
	CheckoutStepCompleted    CheckoutStep = "completed"
	CheckoutStepFailed       CheckoutStep = "failed"
)

// String implements fmt.Stringer.
func (c CheckoutStep) String() string {
	return string(c)
}

// IsTerminal reports whether the flow can no longer advance.
func (c CheckoutStep) IsTerminal() bool {
	return c == CheckoutStepCompleted
}

// Index is the zero-based position shown in step indicators.
func (c CheckoutStep) Index() int {
	switch c {
	case CheckoutStepAddressEntry:
		return 0
	case CheckoutStepPaymentEntry, CheckoutStepFailed:
		return 1
	case CheckoutStepSubmitting:
		return 2
	case CheckoutStepCompleted:
		return 3
	}
	return -1
}
