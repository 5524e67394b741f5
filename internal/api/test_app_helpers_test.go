package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hyson0807/isolog/internal/db"
	"github.com/hyson0807/isolog/internal/models"
	"github.com/hyson0807/isolog/internal/notify"
	"github.com/hyson0807/isolog/internal/security"
	"github.com/hyson0807/isolog/internal/services"
)

const testSecretKey = "test-secret-key-with-enough-length-for-hs256"

type fixedClock struct {
	now time.Time
}

type idleTimer struct{}

func (idleTimer) Stop() bool { return true }

func (clock fixedClock) Now() time.Time { return clock.now }

func (fixedClock) AfterFunc(time.Duration, func()) services.Timer { return idleTimer{} }

// stubHost stands in for the device scheduler and the permission bridge.
type stubHost struct {
	mu         sync.Mutex
	permission models.PermissionState
	onRequest  models.PermissionState
	oneShots   map[string]time.Time
	repeating  map[string]models.ClockTime
}

func newStubHost() *stubHost {
	return &stubHost{
		permission: models.PermissionUndetermined,
		onRequest:  models.PermissionGranted,
		oneShots:   make(map[string]time.Time),
		repeating:  make(map[string]models.ClockTime),
	}
}

func (host *stubHost) ScheduleAt(_ context.Context, id string, at time.Time, _ models.ReminderPayload) error {
	host.mu.Lock()
	defer host.mu.Unlock()
	if host.permission != models.PermissionGranted {
		return notify.ErrPermissionNotGranted
	}
	host.oneShots[id] = at
	return nil
}

func (host *stubHost) Cancel(_ context.Context, id string) error {
	host.mu.Lock()
	defer host.mu.Unlock()
	delete(host.oneShots, id)
	delete(host.repeating, id)
	return nil
}

func (host *stubHost) ScheduleRepeatingDaily(_ context.Context, id string, hour int, minute int, _ models.ReminderPayload) error {
	host.mu.Lock()
	defer host.mu.Unlock()
	if host.permission != models.PermissionGranted {
		return notify.ErrPermissionNotGranted
	}
	host.repeating[id] = models.ClockTime{Hour: hour, Minute: minute}
	return nil
}

func (host *stubHost) PermissionState(context.Context) (models.PermissionState, error) {
	host.mu.Lock()
	defer host.mu.Unlock()
	return host.permission, nil
}

func (host *stubHost) RequestPermission(context.Context) (models.PermissionState, error) {
	host.mu.Lock()
	defer host.mu.Unlock()
	host.permission = host.onRequest
	return host.permission, nil
}

func (host *stubHost) SetPermission(state models.PermissionState) error {
	host.mu.Lock()
	defer host.mu.Unlock()
	host.permission = state
	if state != models.PermissionGranted {
		host.oneShots = make(map[string]time.Time)
		host.repeating = make(map[string]models.ClockTime)
	}
	return nil
}

func (host *stubHost) Armed() []notify.ArmedReminder {
	host.mu.Lock()
	defer host.mu.Unlock()

	armed := make([]notify.ArmedReminder, 0, len(host.oneShots)+len(host.repeating))
	for id, at := range host.oneShots {
		armed = append(armed, notify.ArmedReminder{ID: id, Kind: string(models.ReminderKindDose), At: at})
	}
	for id, clock := range host.repeating {
		armed = append(armed, notify.ArmedReminder{ID: id, Kind: string(models.ReminderKindSkin), Repeating: true, Hour: clock.Hour, Minute: clock.Minute})
	}
	sort.Slice(armed, func(i, j int) bool { return armed[i].ID < armed[j].ID })
	return armed
}

type testApp struct {
	app    *fiber.App
	engine *services.Engine
	host   *stubHost
	token  string
}

func newTestApp(t *testing.T, now time.Time) *testApp {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "isolog-api.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("load sql db: %v", err)
	}

	host := newStubHost()
	engine := services.NewEngine(db.NewRepositories(database).KV, host, services.EngineConfig{
		Location: time.UTC,
		Clock:    fixedClock{now: now},
	})
	engine.Load(context.Background())
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("start engine: %v", err)
	}
	t.Cleanup(func() {
		engine.Stop()
		_ = sqlDB.Close()
	})

	handler, err := NewHandler(engine, host, testSecretKey)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	app := fiber.New()
	RegisterRoutes(app, handler)

	token, err := security.IssueAPIToken([]byte(testSecretKey), "test-host", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return &testApp{app: app, engine: engine, host: host, token: token}
}

func (env *testApp) do(t *testing.T, method string, path string, body any) *http.Response {
	t.Helper()

	var payload *bytes.Reader
	if body == nil {
		payload = bytes.NewReader(nil)
	} else {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode request body: %v", err)
		}
		payload = bytes.NewReader(encoded)
	}

	request := httptest.NewRequest(method, path, payload)
	request.Header.Set(fiber.HeaderAuthorization, "Bearer "+env.token)
	if body != nil {
		request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	response, err := env.app.Test(request, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return response
}
