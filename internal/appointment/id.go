package appointment

import (
	"fmt"
	"time"
)

// SlotID derives the id for a doctor-owned slot. It is deterministic: the
// same (doctor, slot) pair always yields the same id, which is what makes
// week generation idempotent.
func SlotID(doctorID string, slot Slot) string {
	return fmt.Sprintf("APT_%s_%s", doctorID, slot.Stamp())
}

// RecordID derives the id for a doctor-authored ad-hoc encounter record.
// Time-based, used once, never recomputed for lookup.
func RecordID(patientID string, now time.Time) string {
	return fmt.Sprintf("MR_%s_%d", patientID, now.UnixMilli())
}
