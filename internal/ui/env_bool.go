package ui

import "strings"

var boolWords = map[string]bool{
	"1": true, "true": true, "yes": true, "on": true, "y": true,
	"0": false, "false": false, "no": false, "off": false, "n": false,
}

// ParseBoolDefault reads 1/true/yes/on/y and 0/false/no/off/n, ignoring
// case and surrounding space. Anything else yields def.
func ParseBoolDefault(raw string, def bool) bool {
	if v, ok := boolWords[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return v
	}
	return def
}

// EnvBool looks key up through getenv (os.Getenv in production) and
// parses it with ParseBoolDefault.
func EnvBool(getenv func(string) string, key string, def bool) bool {
	if getenv == nil {
		return def
	}
	return ParseBoolDefault(getenv(key), def)
}
