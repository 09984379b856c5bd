package testdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLPrecedence(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"none set", map[string]string{}, ""},
		{"generic wins", map[string]string{
			"DATABASE_URL":       "postgres://a",
			"CARDS_DATABASE_URL": "postgres://c",
		}, "postgres://a"},
		{"test url before app url", map[string]string{
			"CARDS_TEST_DATABASE_URL": "postgres://b",
			"CARDS_DATABASE_URL":      "postgres://c",
		}, "postgres://b"},
		{"app url as fallback", map[string]string{"CARDS_DATABASE_URL": "postgres://c"}, "postgres://c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, name := range URLEnvVars {
				t.Setenv(name, tt.env[name])
			}
			assert.Equal(t, tt.want, URL())
			assert.Equal(t, tt.want == "", ShouldSkip())
		})
	}
}
