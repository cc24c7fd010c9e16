package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		in       string
		want     string
	}{
		{"identity keeps camel", Identity, "activeStatus", "activeStatus"},
		{"identity keeps exported", Identity, "ActiveStatus", "ActiveStatus"},
		{"snake camel", SnakeCase, "activeStatus", "active_status"},
		{"snake exported", SnakeCase, "ActiveStatus", "active_status"},
		{"snake acronym tail", SnakeCase, "UserID", "user_id"},
		{"snake acronym head", SnakeCase, "HTTPServer", "http_server"},
		{"snake single word", SnakeCase, "Name", "name"},
		{"snake digits", SnakeCase, "Field2Name", "field2_name"},
		{"snake digit then upper", SnakeCase, "a1B", "a1_b"},
		{"upper snake digits", UpperSnakeCase, "v1beta", "V1BETA"},
		{"upper snake acronym digits", UpperSnakeCase, "IPV4Addr", "IPV4_ADDR"},
		{"snake empty", SnakeCase, "", ""},
		{"kebab", KebabCase, "ActiveStatus", "active-status"},
		{"upper snake", UpperSnakeCase, "activeStatus", "ACTIVE_STATUS"},
		{"camel", CamelCase, "ActiveStatus", "activeStatus"},
		{"camel already", CamelCase, "activeStatus", "activeStatus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.strategy.Resolve(tt.in))
		})
	}
}

func TestResolveIdempotent(t *testing.T) {
	inputs := []string{
		"activeStatus", "ActiveStatus", "UserID", "HTTPServer", "name", "already_snake", "x",
		"v1beta", "a1b", "a1B", "Ipv4addr", "IPV4Addr", "Field2Name", "v2_API", "9lives",
	}
	strategies := []Strategy{Identity, SnakeCase, CamelCase, KebabCase, UpperSnakeCase}

	for _, s := range strategies {
		for _, in := range inputs {
			once := s.Resolve(in)
			assert.Equal(t, once, s.Resolve(once), "%s(%q) is not idempotent", s, in)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{in: "identity", want: Identity},
		{in: "", want: Identity},
		{in: "snake_case", want: SnakeCase},
		{in: "SNAKE_CASE", want: SnakeCase},
		{in: "snakeCase", want: SnakeCase},
		{in: "kebab-case", want: KebabCase},
		{in: "camel_case", want: CamelCase},
		{in: "upper_snake_case", want: UpperSnakeCase},
		{in: "pascal", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	for s := range names {
		got, err := Parse(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	assert.Equal(t, "naming.Strategy(42)", Strategy(42).String())
}
