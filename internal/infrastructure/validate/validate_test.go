package validate

import (
	"strings"
	"testing"
)

func TestValidators(t *testing.T) {
	type tcase struct {
		v       Validator
		in      string
		wantErr string
	}

	tests := map[string]tcase{
		"required ok":        {v: Required(), in: "x"},
		"required blank":     {v: Required(), in: "  \t", wantErr: "required"},
		"max ok at limit":    {v: MaxLength(3), in: "abc"},
		"max counts runes":   {v: MaxLength(3), in: "äöü"},
		"max over":           {v: MaxLength(3), in: "abcd", wantErr: "no more than 3"},
		"min under":          {v: MinLength(2), in: "a", wantErr: "at least 2"},
		"one of ok":          {v: OneOf("keyword", "user"), in: "user"},
		"one of bad":         {v: OneOf("keyword", "user"), in: "title", wantErr: "one of"},
		"no spaces":          {v: NoSpaces(), in: "a b", wantErr: "spaces"},
		"field labels error": {v: Field("message", Required()), in: "", wantErr: "message: this field is required"},
		"compose first wins": {v: Compose(Required(), MaxLength(1)), in: "", wantErr: "required"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := tc.v(tc.in)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %v does not contain %q", err, tc.wantErr)
			}
		})
	}
}
