package domain

import "strings"

type SearchType string

const (
	SearchByKeyword SearchType = "keyword"
	SearchByUser    SearchType = "user"
)

func ParseSearchType(raw string) (SearchType, error) {
	switch SearchType(strings.ToLower(strings.TrimSpace(raw))) {
	case SearchByKeyword:
		return SearchByKeyword, nil
	case SearchByUser:
		return SearchByUser, nil
	}
	return "", NewValidationError("type", "must be one of: keyword, user")
}

// SearchFilter is transient; it only derives a filtered view.
type SearchFilter struct {
	Query string     `json:"query"`
	Type  SearchType `json:"type"`
}

func (f SearchFilter) Validate() error {
	if strings.TrimSpace(f.Query) == "" {
		return NewValidationError("query", "must not be empty")
	}
	if _, err := ParseSearchType(string(f.Type)); err != nil {
		return err
	}
	return nil
}
