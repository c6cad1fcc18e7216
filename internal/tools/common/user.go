package common

import (
	"fmt"

	"github.com/teemow/graphcal/internal/graph"
	"github.com/teemow/graphcal/internal/server"
)

// UserArg is the optional tool argument naming the user to act for.
const UserArg = "user"

// UserFromArgs returns the user ID a tool call acts for: the explicit "user"
// argument, or the server's default user. It returns "" when neither is set.
func UserFromArgs(args map[string]interface{}, sc *server.ServerContext) string {
	var user string
	if v, ok := args[UserArg].(string); ok {
		user = v
	}
	if sc == nil {
		return user
	}
	return sc.UserOrDefault(user)
}

// StringArg returns a string argument, or "" when it is absent or not a string.
func StringArg(args map[string]interface{}, name string) string {
	if v, ok := args[name].(string); ok {
		return v
	}
	return ""
}

// StringListArg returns an optional list argument given either as an array of
// strings or as one string separated by ';' or ','. It returns nil when the
// argument is absent.
func StringListArg(args map[string]interface{}, name string) ([]string, error) {
	switch v := args[name].(type) {
	case nil:
		return nil, nil
	case string:
		return graph.ParseAttendees(v), nil
	case []interface{}:
		list := make([]string, 0, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", name, i)
			}
			if str == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", name, i)
			}
			list = append(list, str)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", name)
	}
}
