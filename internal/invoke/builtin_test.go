package invoke

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/tool-preselect/internal/search"
	"github.com/khanglvm/tool-preselect/internal/toolset"
)

// runBuiltin binds one bundled tool and runs it with JSON arguments.
func runBuiltin(t *testing.T, group, name, args string) (string, error) {
	t.Helper()
	_, tools := Builtin().Bind([]search.Candidate{{Group: group, Name: name}})
	tool, ok := tools[FunctionName(group, name)]
	require.True(t, ok)
	return tool.InvokableRun(context.Background(), args)
}

func TestBuiltin_Functions(t *testing.T) {
	tests := []struct {
		group, name, args string
		want              string
	}{
		{"StringManipulationPlugin", "ReverseString", `{"input":"héllo"}`, "olléh"},
		{"StringManipulationPlugin", "RemoveCharacters", `{"text":"a-b_c","chars":"-_"}`, "abc"},
		{"StringManipulationPlugin", "FindLongestWord", `{"text":"the quick brownish fox"}`, "brownish"},
		{"UtilityPlugin", "ExtractNumbers", `{"text":"temps 21.5, -3 and 40"}`, "21.5, -3, 40"},
		{"UtilityPlugin", "ExtractNumbers", `{"text":"temps 21.5, -3 and 40","integersOnly":true}`, "-3, 40"},
		{"UtilityPlugin", "CountOccurrences", `{"text":"Go go GO","pattern":"go"}`, "3"},
		{"UtilityPlugin", "CountOccurrences", `{"text":"Go go GO","pattern":"go","caseSensitive":true}`, "1"},
		{"UtilityPlugin", "ValidatePattern", `{"text":"abc123","pattern":"^[a-z]+\\d+$"}`, "true"},
		{"UtilityPlugin", "IsPalindrome", `{"text":"Racecar"}`, "true"},
		{"UtilityPlugin", "IsPalindrome", `{"text":"Racecar","ignoreCase":false}`, "false"},
		{"NetworkPlugin", "ExtractDomain", `{"url":"https://api.example.com:8443/v1?q=1"}`, "api.example.com"},
		{"NetworkPlugin", "ValidatePort", `{"port":8080}`, "true"},
		{"NetworkPlugin", "ValidatePort", `{"port":"70000"}`, "false"},
		{"NetworkPlugin", "ValidateIPv4", `{"ipAddress":"192.168.1.10"}`, "true"},
		{"NetworkPlugin", "ValidateIPv4", `{"ipAddress":"::1"}`, "false"},
		{"ValidationPlugin", "ValidateEmail", `{"email":"ada@example.org"}`, "true"},
		{"ValidationPlugin", "ValidateEmail", `{"email":"not-an-email"}`, "false"},
		{"ValidationPlugin", "ValidatePhone", `{"phone":"+1 (555) 123-4567"}`, "true"},
		{"ValidationPlugin", "ValidateUrl", `{"url":"https://example.com/x"}`, "true"},
		{"ValidationPlugin", "ValidateUrl", `{"url":"ftp://example.com"}`, "false"},
		{"ValidationPlugin", "ValidateCreditCard", `{"cardNumber":"4539 1488 0343 6467"}`, "true"},
		{"ValidationPlugin", "ValidateCreditCard", `{"cardNumber":"4539 1488 0343 6468"}`, "false"},
		{"ValidationPlugin", "ValidateISBN", `{"isbn":"0-306-40615-2"}`, "true"},
		{"ValidationPlugin", "ValidateISBN", `{"isbn":"978-0-306-40615-7"}`, "true"},
		{"ValidationPlugin", "ValidateISBN", `{"isbn":"978-0-306-40615-8"}`, "false"},
		{"ValidationPlugin", "ValidatePasswordStrength", `{"password":"short"}`, "false: Password must be at least 8 characters long"},
		{"ValidationPlugin", "ValidatePasswordStrength", `{"password":"Str0ng!pass"}`, "true: Password meets all requirements"},
		{"SecurityPlugin", "HashString", `{"input":"abc"}`, "BA7816BF8F01CFEA414140DE5DAE2223B00361A396177A9CB410FF61F20015AD"},
		{"SecurityPlugin", "HashString", `{"input":"abc","algorithm":"md5"}`, "900150983CD24FB0D6963F7D28E17F72"},
	}

	for _, tt := range tests {
		t.Run(tt.name+" "+tt.args, func(t *testing.T) {
			got, err := runBuiltin(t, tt.group, tt.name, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuiltin_GenerateId(t *testing.T) {
	id, err := runBuiltin(t, "UtilityPlugin", "GenerateId", `{"prefix":"req-"}`)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "req-"))
	assert.Len(t, id, len("req-")+32)

	other, err := runBuiltin(t, "UtilityPlugin", "GenerateId", `{}`)
	require.NoError(t, err)
	assert.NotEqual(t, strings.TrimPrefix(id, "req-"), other)
}

func TestBuiltin_InvalidArguments(t *testing.T) {
	_, err := runBuiltin(t, "SecurityPlugin", "HashString", `{"input":"abc","algorithm":"CRC32"}`)
	assert.ErrorContains(t, err, "unsupported hash algorithm")

	_, err = runBuiltin(t, "UtilityPlugin", "ValidatePattern", `{"text":"a","pattern":"("}`)
	assert.ErrorContains(t, err, "invalid pattern")

	_, err = runBuiltin(t, "NetworkPlugin", "ValidatePort", `{"port":80.5}`)
	assert.ErrorContains(t, err, "not an integer")
}

// TestBuiltin_CoversBundledToolset verifies every local function names a bundled tool.
func TestBuiltin_CoversBundledToolset(t *testing.T) {
	known := make(map[string]bool)
	for _, d := range toolset.Builtin() {
		known[key(d.Group, d.Name)] = true
	}

	r := Builtin()
	assert.Equal(t, 18, r.Len())
	for k := range r.entries {
		assert.True(t, known[k], "local function %s is not in the bundled toolset", k)
	}
}
