package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

// createTestLogger creates a logger for testing
func createTestLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func createTestVars() map[string]string {
	return map[string]string{
		"username":  "seleniumuser1700000000",
		"email":     "seleniumuser1700000000@example.com",
		"password":  "ValidPass123!",
		"timestamp": "1700000000",
	}
}

func TestReplaceKeyReferences(t *testing.T) {
	logger := createTestLogger()
	vars := createTestVars()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"single", "{email}", "seleniumuser1700000000@example.com"},
		{"embedded", "user-{timestamp}-x", "user-1700000000-x"},
		{"multiple", "{username}:{password}", "seleniumuser1700000000:ValidPass123!"},
		{"unknown left unchanged", "{missing}", "{missing}"},
		{"case sensitive", "{Email}", "{Email}"},
		{"no references", "plain value", "plain value"},
		{"empty", "", ""},
		{"invalid name chars", "{not valid}", "{not valid}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReplaceKeyReferences(tt.input, vars, logger))
		})
	}
}

func TestReplaceKeyReferences_ValueNotRescanned(t *testing.T) {
	logger := createTestLogger()
	vars := map[string]string{"password": "{email}", "email": "x@example.com"}

	assert.Equal(t, "{email}", ReplaceKeyReferences("{password}", vars, logger))
}

func TestReplaceInMap(t *testing.T) {
	logger := createTestLogger()
	vars := createTestVars()

	m := map[string]interface{}{
		"email":   "{email}",
		"retries": 3,
		"nested": map[string]interface{}{
			"username": "{username}",
		},
		"list": []interface{}{"{password}", map[string]interface{}{"ts": "{timestamp}"}},
	}

	require.NoError(t, ReplaceInMap(m, vars, logger))

	assert.Equal(t, "seleniumuser1700000000@example.com", m["email"])
	assert.Equal(t, 3, m["retries"])
	assert.Equal(t, "seleniumuser1700000000", m["nested"].(map[string]interface{})["username"])
	list := m["list"].([]interface{})
	assert.Equal(t, "ValidPass123!", list[0])
	assert.Equal(t, "1700000000", list[1].(map[string]interface{})["ts"])
}

type formStep struct {
	Route  string
	Fields map[string]string
	Tags   []string
	Inner  struct{ Value string }
	Ptr    *struct{ Value string }
	count  int
}

func TestReplaceInStruct(t *testing.T) {
	logger := createTestLogger()
	vars := createTestVars()

	step := formStep{
		Route:  "/login?u={username}",
		Fields: map[string]string{"email": "{email}", "password": "{password}"},
		Tags:   []string{"{timestamp}"},
		Ptr:    &struct{ Value string }{Value: "{email}"},
	}
	step.Inner.Value = "{username}"

	require.NoError(t, ReplaceInStruct(&step, vars, logger))

	assert.Equal(t, "/login?u=seleniumuser1700000000", step.Route)
	assert.Equal(t, "seleniumuser1700000000@example.com", step.Fields["email"])
	assert.Equal(t, "ValidPass123!", step.Fields["password"])
	assert.Equal(t, []string{"1700000000"}, step.Tags)
	assert.Equal(t, "seleniumuser1700000000", step.Inner.Value)
	assert.Equal(t, "seleniumuser1700000000@example.com", step.Ptr.Value)
}

func TestReplaceInStruct_RequiresStructPointer(t *testing.T) {
	logger := createTestLogger()

	err := ReplaceInStruct(formStep{}, createTestVars(), logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a pointer")

	s := "x"
	err = ReplaceInStruct(&s, createTestVars(), logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "struct pointer")
}
