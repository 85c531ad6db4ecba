package intent

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoObject = errors.New("no JSON object found in response")

// firstObject returns the first JSON object that decodes cleanly when starting at one of the
// '{' positions of s. Prose before or after the object and nested braces inside it are fine.
func firstObject(s string) (map[string]any, error) {
	for i := 0; i < len(s); i++ {
		j := strings.IndexByte(s[i:], '{')
		if j < 0 {
			break
		}
		i += j
		var obj map[string]any
		if err := json.NewDecoder(strings.NewReader(s[i:])).Decode(&obj); err == nil {
			return obj, nil
		}
	}
	return nil, errNoObject
}
