package sequence

import (
	"testing"
	"time"
)

func TestDisplayNumbers(t *testing.T) {
	day := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"appointment", AppointmentNumber(day, 7), "APT-20260220-0007"},
		{"invoice", InvoiceNumber(day, 42), "INV-20260220-0042"},
		{"prescription", PrescriptionNumber(day, 1), "RX-20260220-0001"},
		{"lab test", LabTestNumber(day, 12345), "LAB-20260220-12345"},
		{"medical record", MedicalRecordNumber(2026, 9), "MRN-2026-0009"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %q, want %q", tc.got, tc.want)
			}
		})
	}
}

func TestQueueToken(t *testing.T) {
	if got := QueueToken(1); got != "Q-001" {
		t.Errorf("QueueToken(1) = %q, want Q-001", got)
	}
	if got := QueueToken(3); got != "Q-003" {
		t.Errorf("QueueToken(3) = %q, want Q-003", got)
	}
	if got := QueueToken(1042); got != "Q-1042" {
		t.Errorf("QueueToken(1042) = %q, want Q-1042", got)
	}
}
