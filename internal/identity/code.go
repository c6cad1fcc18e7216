package identity

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrStateMismatch is returned when a pasted redirect URL carries a state
// other than the one sent with the consent URL.
var ErrStateMismatch = errors.New("state mismatch in redirect URL")

// ExtractCode accepts either a bare authorization code or the redirect URL
// (or its query string) carrying it. A redirect must echo state when it
// carries one and must not report an error. A bare code has no state to
// check.
func ExtractCode(input, state string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("no authorization code entered")
	}
	if !strings.Contains(input, "code=") && !strings.Contains(input, "error=") {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("failed to parse redirect URL: %w", err)
	}
	query := u.Query()
	if u.RawQuery == "" {
		// A pasted query string without scheme and path.
		if query, err = url.ParseQuery(strings.TrimPrefix(input, "?")); err != nil {
			return "", fmt.Errorf("failed to parse redirect URL: %w", err)
		}
	}

	if e := query.Get("error"); e != "" {
		return "", fmt.Errorf("sign-in failed: %s: %s", e, query.Get("error_description"))
	}
	if got := query.Get("state"); got != "" && got != state {
		return "", ErrStateMismatch
	}
	code := query.Get("code")
	if code == "" {
		return "", fmt.Errorf("redirect URL has no code parameter")
	}
	return code, nil
}
