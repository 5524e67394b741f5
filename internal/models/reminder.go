package models

type ReminderKind string

const (
	ReminderKindDose ReminderKind = "dose"
	ReminderKindSkin ReminderKind = "skin"
)

type ReminderPayload struct {
	Kind       ReminderKind `json:"kind"`
	Date       string       `json:"date,omitempty"`
	Title      string       `json:"title"`
	Body       string       `json:"body"`
	DeliveryID string       `json:"delivery_id"`
}

type PermissionState string

const (
	PermissionGranted      PermissionState = "granted"
	PermissionDenied       PermissionState = "denied"
	PermissionUndetermined PermissionState = "undetermined"
)

func (state PermissionState) Valid() bool {
	switch state {
	case PermissionGranted, PermissionDenied, PermissionUndetermined:
		return true
	default:
		return false
	}
}
