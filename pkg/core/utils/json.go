package utils

import (
	"encoding/json"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
	"github.com/rotisserie/eris"
)

// RepairJSON fixes truncated or sloppy JSON: unclosed arrays and objects,
// trailing commas, single quotes, unquoted keys.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", eris.Wrap(err, "utils: repair json")
	}
	return repaired, nil
}

// ParseHJSON converts Human JSON (comments, unquoted keys and strings,
// optional commas) into standard JSON.
func ParseHJSON(data []byte) ([]byte, error) {
	var v interface{}
	if err := hjson.Unmarshal(data, &v); err != nil {
		return nil, eris.Wrap(err, "utils: parse hjson")
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "utils: marshal hjson result")
	}
	return out, nil
}

// DecodeHJSON decodes Hjson into target through its JSON form, so target's
// json tags apply.
func DecodeHJSON(data []byte, target interface{}) error {
	js, err := ParseHJSON(data)
	if err != nil {
		return err
	}
	return eris.Wrap(json.Unmarshal(js, target), "utils: decode hjson")
}

// DecodeLenient tries, in order: strict JSON, repaired JSON, Hjson.
// It reports whether the input needed repair.
func DecodeLenient(data []byte, target interface{}) (repaired bool, err error) {
	if err := json.Unmarshal(data, target); err == nil {
		return false, nil
	}

	if fixed, err := RepairJSON(string(data)); err == nil {
		if err := json.Unmarshal([]byte(fixed), target); err == nil {
			return true, nil
		}
	}

	if err := DecodeHJSON(data, target); err == nil {
		return true, nil
	}
	return false, eris.New("utils: input is not recoverable as json")
}
