package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBodyText(t *testing.T) {
	assert.Equal(t,
		"Dashboard Account Information Username: seleniumuser1 Email: seleniumuser1@example.com",
		BodyText(dashboardHTML))
	assert.Equal(t, "", BodyText(""))
}

func TestBodyExcerpt(t *testing.T) {
	assert.Equal(t, "Dashboard", BodyExcerpt(dashboardHTML, 9))
	assert.Equal(t, "", BodyExcerpt(dashboardHTML, 0))
}

func TestTitleOf(t *testing.T) {
	assert.Equal(t, "My App - Dashboard", TitleOf(dashboardHTML))
	assert.Equal(t, "", TitleOf("<p>no title</p>"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "short", Truncate("short", 100))
}
