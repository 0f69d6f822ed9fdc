package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

type (
	// StringList is stored as a JSON array column.
	StringList []string

	// Answers maps a zero-based question index to the free-text answer.
	Answers map[int]string
)

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *StringList) Scan(src any) error {
	data, err := columnBytes(src)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(data, (*[]string)(l))
}

// Contains reports whether s is already in the list.
func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

func (a Answers) Value() (driver.Value, error) {
	data, err := json.Marshal(a.Strings())
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (a *Answers) Scan(src any) error {
	data, err := columnBytes(src)
	if err != nil {
		return err
	}

	raw := map[string]string{}
	if len(data) > 0 {
		if err = json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}

	parsed, err := AnswersFromStrings(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Indexes returns the question indexes in ascending order.
func (a Answers) Indexes() []int {
	idx := make([]int, 0, len(a))
	for i := range a {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// Strings converts the answers to the string-keyed shape used on the wire and
// in document stores.
func (a Answers) Strings() map[string]string {
	out := make(map[string]string, len(a))
	for i, v := range a {
		out[strconv.Itoa(i)] = v
	}
	return out
}

func AnswersFromStrings(raw map[string]string) (Answers, error) {
	out := make(Answers, len(raw))
	for k, v := range raw {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("%w: invalid question index %q", ErrValidation, k)
		}
		out[i] = v
	}
	return out, nil
}

func (a Answers) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Strings())
}

func (a *Answers) UnmarshalJSON(data []byte) error {
	raw := map[string]string{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := AnswersFromStrings(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func columnBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", src)
	}
}
