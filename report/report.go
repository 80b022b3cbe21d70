/*
Package report assembles the debtor report input.

PURPOSE:
  The administration dashboard feeds an AI summarization flow with a
  plain-text overview of students carrying outstanding balances. That flow
  is a downstream consumer, not part of the calculation engine: this
  package's responsibility ends at extracting debtors from student
  balances and formatting the text the flow receives.

DISCRETION THRESHOLD:
  The summarization prompt asks for "significant" debts. ExtractDebtors
  takes a minimum-debt threshold so the caller controls what is worth
  reporting; zero means report everyone who owes anything.
*/
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/maktab/school-engine/engine"
	"github.com/maktab/school-engine/school"
)

// Debtor is a student with a negative balance. Debt is the positive amount owed.
type Debtor struct {
	Student school.Student
	Debt    engine.Money
}

// ExtractDebtors returns non-archived students whose balance is negative and
// whose debt is at least minDebt, ordered by debt descending. Pass zero
// Money to include every debtor.
func ExtractDebtors(students []school.Student, minDebt engine.Money) []Debtor {
	var debtors []Debtor
	for _, s := range students {
		if s.IsArchived || !s.Balance.IsNegative() {
			continue
		}
		debt := s.Balance.Neg()
		if debt.LessThan(minDebt) {
			continue
		}
		debtors = append(debtors, Debtor{Student: s, Debt: debt})
	}
	sort.SliceStable(debtors, func(i, j int) bool {
		return debtors[i].Debt.GreaterThan(debtors[j].Debt)
	})
	return debtors
}

// MonthLabel formats a month the way the report flow expects, e.g. "January 2024".
func MonthLabel(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", month, year)
}

// BuildPromptInput renders the plain-text summary handed to the
// summarization flow: one line per debtor plus a total.
func BuildPromptInput(monthLabel string, debtors []Debtor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Outstanding balances for %s\n", monthLabel)

	if len(debtors) == 0 {
		b.WriteString("No students with outstanding balances.\n")
		return b.String()
	}

	total := engine.Money{}
	for _, d := range debtors {
		fmt.Fprintf(&b, "- %s (grade %d): owes %s, monthly fee %s, enrolled %s\n",
			d.Student.FullName, d.Student.Grade, d.Debt, d.Student.MonthlyFee, d.Student.EnrollmentDate)
		total = total.Add(d.Debt)
	}
	fmt.Fprintf(&b, "Total outstanding: %s across %d students\n", total, len(debtors))
	return b.String()
}
