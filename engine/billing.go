/*
billing.go - Next payment deadline derivation

PURPOSE:
  Computes a student's next payment due date from their enrollment date,
  billing cycle, and a reference "today".

THE TWO CYCLES:
  monthly:     due on the smallest 1st-of-month that is >= today.
  anniversary: due on the enrollment day-of-month, advanced in whole-month
               steps from the enrollment date until >= today. The first
               deadline is one month after enrollment - a student is never
               due on their enrollment date itself.

CLAMPING CONVENTION:
  Month arithmetic clamps to the last valid day of the target month
  (Date.AddMonths). Each anniversary candidate is computed from the
  enrollment ANCHOR (enrollment + n months), not by repeatedly adding one
  month to the previous candidate. The difference matters for day-31
  enrollments: anchor-based arithmetic yields Jan 31, Feb 28, Mar 31, ...
  while repeated clamped addition would decay permanently to the 28th
  after the first February.

SEE ALSO:
  - date.go: AddMonths clamping
  - school: Resolves the Student and supplies "today" from its clock
*/
package engine

// NextDueDate computes the next payment deadline for a student enrolled on
// enrollment with the given billing cycle, as of today.
//
// The result is always >= today. For the anniversary cycle it is also
// strictly after enrollment. A zero enrollment date fails with
// ErrInvalidEnrollmentDate; an unrecognized payment type fails with
// ErrUnknownPaymentType (no silent default).
func NextDueDate(enrollment Date, paymentType PaymentType, today Date) (Date, error) {
	if enrollment.IsZero() {
		return Date{}, &InvalidEnrollmentDateError{}
	}

	switch paymentType {
	case PaymentMonthly:
		deadline := StartOfMonth(today.Year(), today.Month())
		for deadline.Before(today) {
			deadline = deadline.AddMonths(1)
		}
		return deadline, nil

	case PaymentAnniversary:
		// Anchor-based: candidate n is enrollment + n months, n >= 1.
		deadline := enrollment.AddMonths(1)
		for n := 2; deadline.Before(today); n++ {
			deadline = enrollment.AddMonths(n)
		}
		return deadline, nil

	default:
		return Date{}, &UnknownPaymentTypeError{Value: string(paymentType)}
	}
}
