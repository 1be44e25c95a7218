package templateutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstitute(t *testing.T) {
	vars := map[string]string{
		"firstName":   "Ada",
		"quizProfile": "Explorer",
	}

	assert.Equal(t, "portrait of Ada the Explorer",
		Substitute("portrait of {{firstName}} the {{quizProfile}}", vars))

	// Whitespace inside the braces is tolerated.
	assert.Equal(t, "Ada", Substitute("{{ firstName }}", vars))

	// Unknown placeholders vanish instead of leaking braces into a prompt.
	assert.Equal(t, "hello ", Substitute("hello {{nickname}}", vars))

	assert.Equal(t, "no placeholders", Substitute("no placeholders", vars))
	assert.Equal(t, "", Substitute("", vars))
}

func TestVariables(t *testing.T) {
	names := Variables("{{firstName}} {{lastName}} and {{firstName}} again")
	assert.Equal(t, []string{"firstName", "lastName"}, names)

	assert.Empty(t, Variables("static text"))
}
