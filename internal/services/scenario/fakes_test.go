package scenario

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/webprobe/internal/interfaces"
	"github.com/ternarybob/webprobe/internal/models"
	"github.com/ternarybob/webprobe/internal/services/browser"
	"github.com/ternarybob/webprobe/internal/services/oracle"
)

const formHTML = `<html><head><title>My App</title></head><body><form>%s<button type="submit">Go</button></form>%s</body></html>`

// fakeApp is an in-memory front-end with signup, login and dashboard pages
type fakeApp struct {
	mu              sync.Mutex
	users           map[string]string // email -> password
	dashboardHTML   string            // rendered for logged-in users
	hideDashboard   bool              // login succeeds but never redirects
	missingFields   map[string]bool   // element ids that never appear
	signupMessage   string            // set to stay on /signup with a message
	panicOnNavigate bool
	console         []string // reported by every session
	events          []string
}

func newFakeApp() *fakeApp {
	return &fakeApp{
		users:         map[string]string{},
		missingFields: map[string]bool{},
		dashboardHTML: `<html><head><title>Dashboard</title></head><body><h1>Dashboard</h1>` +
			`<h2>Account Information</h2><p>Username: someone</p><p>Email: someone@example.com</p></body></html>`,
	}
}

func (a *fakeApp) record(event string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func (a *fakeApp) Events() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.events...)
}

// Launch implements interfaces.BrowserLauncher
func (a *fakeApp) Launch(ctx context.Context) (interfaces.BrowserSession, error) {
	a.record("launch")
	return &fakeSession{app: a, url: "about:blank", html: "<html><body></body></html>", fields: map[string]string{}}, nil
}

type fakeSession struct {
	app      *fakeApp
	url      string
	html     string
	fields   map[string]string
	loggedIn bool
	closed   bool
}

// ConsoleErrors implements interfaces.ConsoleRecorder
func (s *fakeSession) ConsoleErrors() []string {
	return s.app.console
}

func (s *fakeSession) path() string {
	u, err := url.Parse(s.url)
	if err != nil {
		return ""
	}
	return u.Path
}

func (s *fakeSession) render(path string, message string) {
	s.url = "http://localhost:5173" + path
	switch path {
	case "/signup":
		s.html = fmt.Sprintf(formHTML, `<input id="username"><input id="email"><input id="password"><input id="confirmPassword">`, message)
	case "/login":
		s.html = fmt.Sprintf(formHTML, `<input id="email"><input id="password">`, message)
	case "/dashboard":
		if !s.loggedIn {
			s.render("/login", "")
			return
		}
		s.html = s.app.dashboardHTML
	default:
		s.html = "<html><body>Not found</body></html>"
	}
}

func (s *fakeSession) Navigate(ctx context.Context, target string) error {
	if s.app.panicOnNavigate {
		panic("renderer crashed")
	}
	u, err := url.Parse(target)
	if err != nil {
		return err
	}
	s.app.record("navigate " + u.Path)
	s.fields = map[string]string{}
	s.render(u.Path, "")
	return nil
}

func (s *fakeSession) InjectStyle(ctx context.Context, css string) error {
	s.app.record("style")
	return nil
}

func (s *fakeSession) Fill(ctx context.Context, id string, value string) error {
	if s.app.missingFields[id] || !strings.Contains(s.html, `id="`+id+`"`) {
		return &browser.ElementError{Selector: "#" + id, URL: s.url, Excerpt: s.html, Err: context.DeadlineExceeded}
	}
	s.app.record("fill " + id + "=" + value)
	s.fields[id] = value
	return nil
}

func (s *fakeSession) Click(ctx context.Context, selector string) error {
	s.app.record("click " + selector)
	s.app.mu.Lock()
	defer s.app.mu.Unlock()

	switch s.path() {
	case "/signup":
		if s.app.signupMessage != "" {
			s.render("/signup", s.app.signupMessage)
			return nil
		}
		s.app.users[s.fields["email"]] = s.fields["password"]
		s.loggedIn = true
		s.render("/dashboard", "")
	case "/login":
		if pw, ok := s.app.users[s.fields["email"]]; ok && pw == s.fields["password"] {
			s.loggedIn = true
			if s.app.hideDashboard {
				s.render("/login", "")
				return nil
			}
			s.render("/dashboard", "")
			return nil
		}
		s.render("/login", `<p class="error">Invalid email or password</p>`)
	}
	return nil
}

func (s *fakeSession) Snapshot(ctx context.Context) (models.PageState, error) {
	return models.PageState{URL: s.url, HTML: s.html}, nil
}

// WaitFor re-checks the fake page state every interval until timeout
func (s *fakeSession) WaitFor(ctx context.Context, checks []models.Check, timeout, interval time.Duration) (bool, error) {
	s.app.record("wait")
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if oracle.Satisfied(checks, models.PageState{URL: s.url, HTML: s.html}) {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return false, nil
		case <-ticker.C:
		}
	}
}

func (s *fakeSession) BodyText(ctx context.Context) (string, error) { return s.html, nil }

func (s *fakeSession) Screenshot(ctx context.Context) ([]byte, error) { return []byte("png"), nil }

func (s *fakeSession) Close() error {
	s.closed = true
	s.app.record("close")
	return nil
}

// fakeProvisioner registers accounts directly with the fake app
type fakeProvisioner struct {
	app *fakeApp
	err error
}

func (p *fakeProvisioner) Provision(ctx context.Context, account models.Account) error {
	p.app.record("provision " + account.Email)
	if p.err != nil {
		return p.err
	}
	p.app.mu.Lock()
	p.app.users[account.Email] = account.Password
	p.app.mu.Unlock()
	return nil
}

type sequenceGenerator struct {
	n int
}

func (g *sequenceGenerator) Next() (models.Account, error) {
	g.n++
	name := fmt.Sprintf("seleniumuser%d", 1700000000+g.n)
	return models.Account{Username: name, Email: name + "@example.com", Password: "ValidPass123!"}, nil
}

type memoryLedger struct {
	accounts []*models.AccountRecord
	runs     []*models.RunRecord
}

func (m *memoryLedger) SaveAccount(ctx context.Context, record *models.AccountRecord) error {
	m.accounts = append(m.accounts, record)
	return nil
}

func (m *memoryLedger) ListAccounts(ctx context.Context, limit int) ([]*models.AccountRecord, error) {
	return m.accounts, nil
}

func (m *memoryLedger) CountAccounts(ctx context.Context) (int, error) { return len(m.accounts), nil }

func (m *memoryLedger) SaveRun(ctx context.Context, run *models.RunRecord) error {
	m.runs = append(m.runs, run)
	return nil
}

func (m *memoryLedger) GetRun(ctx context.Context, id string) (*models.RunRecord, error) {
	for _, r := range m.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("run not found: %s", id)
}

func (m *memoryLedger) ListRuns(ctx context.Context, limit int) ([]*models.RunRecord, error) {
	return m.runs, nil
}

type memoryReporter struct {
	scenarios []string
	summaries int
}

func (m *memoryReporter) StartRun(run *models.RunRecord) (string, error) {
	return "/tmp/results/" + run.ID, nil
}

func (m *memoryReporter) WriteScenario(runDir string, scenario string, state models.PageState, screenshot []byte) (string, error) {
	m.scenarios = append(m.scenarios, scenario)
	return runDir + "/" + scenario, nil
}

func (m *memoryReporter) WriteSummary(runDir string, run *models.RunRecord) error {
	m.summaries++
	return nil
}
