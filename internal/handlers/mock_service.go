package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"controlling_poolspa/internal/models"
	"controlling_poolspa/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(ctx context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(ctx context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockControl struct {
	mu         sync.Mutex
	buttonErr  error
	tempErr    error
	stopErr    error
	buttons    []int
	directions []string
	stops      int
	sources    []string
}

func (m *mockControl) PressButton(ctx context.Context, button int, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buttons = append(m.buttons, button)
	m.sources = append(m.sources, source)
	return m.buttonErr
}
func (m *mockControl) AdjustTemp(ctx context.Context, direction string, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.directions = append(m.directions, direction)
	m.sources = append(m.sources, source)
	return m.tempErr
}
func (m *mockControl) Stop(ctx context.Context, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	m.sources = append(m.sources, source)
	return m.stopErr
}

func (m *mockControl) calls() (buttons []int, directions []string, stops int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.buttons...), append([]string(nil), m.directions...), m.stops
}

type mockMonitoring struct {
	state models.PoolState
	err   error
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.PoolState, error) {
	return m.state, m.err
}

type mockEventLog struct {
	resp      []models.PoolEvent
	err       error
	lastFrom  time.Time
	lastTo    time.Time
	lastType  string
	lastLimit int
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.PoolEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	m.lastLimit = f.Limit
	return m.resp, m.err
}

type mockHistory struct {
	resp []models.TempSample
	err  error
	last service.HistoryFilter
}

func (m *mockHistory) List(ctx context.Context, f service.HistoryFilter) ([]models.TempSample, error) {
	m.last = f
	return m.resp, m.err
}

type mockVisitors struct {
	mu       sync.Mutex
	touched  []string
	touchErr error
	resp     []models.Visitor
	err      error
}

func (m *mockVisitors) Touch(ctx context.Context, ip, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched = append(m.touched, ip+" "+path)
	return m.touchErr
}
func (m *mockVisitors) List(ctx context.Context, limit int) ([]models.Visitor, error) {
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
