package provision

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/webprobe/internal/common"
	"github.com/ternarybob/webprobe/internal/interfaces"
	"github.com/ternarybob/webprobe/internal/models"
)

// Generator builds unique test accounts of the form
// <prefix><unix-seconds> / <prefix><unix-seconds>@<domain>.
//
// Within one process the suffix strictly increases, so two accounts asked
// for in the same second still differ. Two processes started in the same
// second can still collide; the server then answers non-201 and the
// scenario fails as a provisioning error.
type Generator struct {
	prefix   string
	domain   string
	password string
	validate *validator.Validate
	now      func() time.Time

	mu   sync.Mutex
	last int64
}

var _ interfaces.AccountGenerator = (*Generator)(nil)

// NewGenerator creates a generator from the [account] config section
func NewGenerator(config common.AccountConfig) *Generator {
	return &Generator{
		prefix:   config.UsernamePrefix,
		domain:   strings.TrimPrefix(config.EmailDomain, "@"),
		password: config.Password,
		validate: NewValidator(),
		now:      time.Now,
	}
}

// Next returns a fresh account. It fails if the configured password or the
// generated identity would be refused by the signup validation.
func (g *Generator) Next() (models.Account, error) {
	g.mu.Lock()
	ts := g.now().Unix()
	if ts <= g.last {
		ts = g.last + 1
	}
	g.last = ts
	g.mu.Unlock()

	username := fmt.Sprintf("%s%d", g.prefix, ts)
	account := models.Account{
		Username:  username,
		Email:     fmt.Sprintf("%s@%s", username, g.domain),
		Password:  g.password,
		CreatedAt: time.Unix(ts, 0),
	}

	if err := g.validate.Struct(account); err != nil {
		if problems := ValidatePassword(account.Password); len(problems) > 0 {
			return models.Account{}, fmt.Errorf("%w: password %s", ErrInvalidAccount, strings.Join(problems, ", "))
		}
		return models.Account{}, fmt.Errorf("%w: %v", ErrInvalidAccount, err)
	}

	return account, nil
}
