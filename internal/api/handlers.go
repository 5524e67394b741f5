package api

import (
	"errors"
	"time"

	"github.com/hyson0807/isolog/internal/models"
	"github.com/hyson0807/isolog/internal/notify"
	"github.com/hyson0807/isolog/internal/services"
)

const contextSubjectKey = "api_subject"

var errSecretKeyRequired = errors.New("secret key is required")

// NotificationHost is the local scheduler as seen by the host bridge: the
// host reports OS permission changes and may inspect what is armed.
type NotificationHost interface {
	SetPermission(state models.PermissionState) error
	Armed() []notify.ArmedReminder
}

type Handler struct {
	engine        *services.Engine
	notifications NotificationHost
	secretKey     []byte
	location      *time.Location
	now           func() time.Time
	authFailures  *failureLimiter
}

func NewHandler(engine *services.Engine, notifications NotificationHost, secretKey string) (*Handler, error) {
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}
	return &Handler{
		engine:        engine,
		notifications: notifications,
		secretKey:     []byte(secretKey),
		location:      engine.Location(),
		now:           time.Now,
		authFailures:  newFailureLimiter(authFailureLimit, authFailureWindow),
	}, nil
}

type scheduleInput struct {
	Interval models.Cadence `json:"interval"`
}

type onboardingInput struct {
	Interval     models.Cadence `json:"interval"`
	LastDoseDate string         `json:"last_dose_date"`
}

type permissionInput struct {
	State models.PermissionState `json:"state"`
}

type scheduleView struct {
	Cadence          models.Cadence `json:"cadence"`
	IntervalDays     int            `json:"interval_days"`
	ReferenceDate    string         `json:"reference_date,omitempty"`
	UpcomingDoseDays []string       `json:"upcoming_dose_days"`
}

type preferencesView struct {
	Preferences models.NotificationPreferences `json:"preferences"`
	Permission  models.PermissionState         `json:"permission,omitempty"`
}
