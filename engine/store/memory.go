// Package store provides in-memory implementations of the engine's
// persistence interfaces, for testing and development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maktab/school-engine/engine"
)

// =============================================================================
// MEMORY PAYMENT STORE
// =============================================================================

type MemoryPayments struct {
	mu          sync.RWMutex
	payments    map[engine.StudentID][]engine.Payment
	idempotency map[string]bool
}

func NewMemoryPayments() *MemoryPayments {
	return &MemoryPayments{
		payments:    make(map[engine.StudentID][]engine.Payment),
		idempotency: make(map[string]bool),
	}
}

// Append adds a single payment. Append-only.
func (m *MemoryPayments) Append(_ context.Context, p engine.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.IdempotencyKey != "" && m.idempotency[p.IdempotencyKey] {
		return engine.ErrDuplicateIdempotencyKey
	}

	ps := m.payments[p.StudentID]

	// Binary search for insertion point, keeping entries date-ordered.
	// Equal dates keep insertion order.
	i := sort.Search(len(ps), func(i int) bool {
		return ps[i].Date.After(p.Date)
	})
	ps = append(ps, engine.Payment{})
	copy(ps[i+1:], ps[i:])
	ps[i] = p
	m.payments[p.StudentID] = ps

	if p.IdempotencyKey != "" {
		m.idempotency[p.IdempotencyKey] = true
	}
	return nil
}

func (m *MemoryPayments) Load(_ context.Context, studentID engine.StudentID) ([]engine.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]engine.Payment, len(m.payments[studentID]))
	copy(result, m.payments[studentID])
	return result, nil
}

func (m *MemoryPayments) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}

// =============================================================================
// MEMORY ATTENDANCE STORE
// =============================================================================

type MemoryAttendance struct {
	mu sync.RWMutex
	// keyed by date string; a day's submission replaces the whole slice
	days map[string][]engine.AttendanceRecord
}

func NewMemoryAttendance() *MemoryAttendance {
	return &MemoryAttendance{days: make(map[string][]engine.AttendanceRecord)}
}

func (m *MemoryAttendance) ReplaceDay(_ context.Context, date engine.Date, records []engine.AttendanceRecord) error {
	// Validate first so a bad record leaves the day untouched.
	for _, rec := range records {
		if err := engine.ValidateAttendanceRecord(rec); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Last-write-wins per (staff, date): keep only the final record per staff.
	byStaff := make(map[engine.StaffID]engine.AttendanceRecord, len(records))
	order := make([]engine.StaffID, 0, len(records))
	for _, rec := range records {
		rec.Date = date
		if _, seen := byStaff[rec.StaffID]; !seen {
			order = append(order, rec.StaffID)
		}
		byStaff[rec.StaffID] = rec
	}

	day := make([]engine.AttendanceRecord, 0, len(order))
	for _, id := range order {
		day = append(day, byStaff[id])
	}
	m.days[date.String()] = day
	return nil
}

func (m *MemoryAttendance) UpdateHours(_ context.Context, staffID engine.StaffID, date engine.Date, hours decimal.Decimal) error {
	if err := engine.ValidateAttendanceRecord(engine.AttendanceRecord{StaffID: staffID, Date: date, Hours: hours}); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	day := m.days[date.String()]
	for i, rec := range day {
		if rec.StaffID == staffID {
			day[i].Hours = hours
			return nil
		}
	}
	return engine.ErrAttendanceNotFound
}

func (m *MemoryAttendance) RecordsInMonth(_ context.Context, staffID engine.StaffID, year int, month time.Month) ([]engine.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.AttendanceRecord
	for _, day := range m.days {
		for _, rec := range day {
			if rec.StaffID == staffID && rec.Date.InMonth(year, month) {
				result = append(result, rec)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *MemoryAttendance) RecordsForRange(_ context.Context, from, to engine.Date) ([]engine.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	period := engine.Period{Start: from, End: to}
	var result []engine.AttendanceRecord
	for _, day := range m.days {
		for _, rec := range day {
			if period.Contains(rec.Date) {
				result = append(result, rec)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *MemoryAttendance) DeleteForStaff(_ context.Context, staffID engine.StaffID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, day := range m.days {
		kept := day[:0]
		for _, rec := range day {
			if rec.StaffID != staffID {
				kept = append(kept, rec)
			}
		}
		m.days[key] = kept
	}
	return nil
}

// =============================================================================
// MEMORY AUDIT LOG
// =============================================================================

type MemoryAudit struct {
	mu      sync.RWMutex
	entries []engine.AuditEntry
}

func NewMemoryAudit() *MemoryAudit {
	return &MemoryAudit{}
}

func (m *MemoryAudit) Append(_ context.Context, entry engine.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MemoryAudit) Query(_ context.Context, filter engine.AuditFilter) ([]engine.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.AuditEntry
	for _, e := range m.entries {
		if filter.StudentID != nil && e.StudentID != *filter.StudentID {
			continue
		}
		if filter.StaffID != nil && e.StaffID != *filter.StaffID {
			continue
		}
		if filter.ActorID != nil && e.ActorID != *filter.ActorID {
			continue
		}
		if len(filter.Actions) > 0 && !containsAction(filter.Actions, e.Action) {
			continue
		}
		if filter.From != nil && e.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.Timestamp.After(*filter.To) {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func containsAction(actions []engine.AuditAction, a engine.AuditAction) bool {
	for _, candidate := range actions {
		if candidate == a {
			return true
		}
	}
	return false
}
