package models

import "time"

// Account is a test user as sent to the signup endpoint.
// JSON field names are the wire format of POST /api/signup.
type Account struct {
	Username  string    `json:"username" validate:"required,min=3,max=50"`
	Email     string    `json:"email" validate:"required,email,signup_email"`
	Password  string    `json:"password" validate:"required,password_policy"`
	CreatedAt time.Time `json:"-"`
}

// Vars returns the {name} references a scenario may use for this account
func (a Account) Vars() map[string]string {
	return map[string]string{
		"username":  a.Username,
		"email":     a.Email,
		"password":  a.Password,
		"timestamp": AccountTimestamp(a),
	}
}

// AccountTimestamp returns the unix-seconds suffix the account was built with
func AccountTimestamp(a Account) string {
	if a.CreatedAt.IsZero() {
		return ""
	}
	return formatUnix(a.CreatedAt)
}

// AccountRecord is the ledger entry written for every provisioned account.
// Accounts are never deleted by the probe; the ledger is the cleanup list.
type AccountRecord struct {
	Username  string    `json:"username" badgerhold:"key"`
	Email     string    `json:"email" badgerhold:"index"`
	Password  string    `json:"password"`
	RunID     string    `json:"run_id" badgerhold:"index"`
	Scenario  string    `json:"scenario"`
	SignupURL string    `json:"signup_url"`
	CreatedAt time.Time `json:"created_at"`
}
