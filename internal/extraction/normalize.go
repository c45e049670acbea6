package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/bulssi/profile-api/internal/domain"
)

// maxAge bounds the numbers accepted as an exact age.
const maxAge = 150

var (
	negativeRegex = regexp.MustCompile(`(^|[^\d\s])\s*[-−]\s*\d`)
	rangeRegex    = regexp.MustCompile(`(\d{1,3})\s*[~\-–]\s*(\d{1,3})`)
	exactRegex    = regexp.MustCompile(`(\d{1,3})\s*(세|살)`)
	decadeRegex   = regexp.MustCompile(`(\d{1,3})\s*대`)
	numberRegex   = regexp.MustCompile(`\d+`)
)

var genderSpellings = map[string]domain.Gender{
	"m":      domain.GenderMale,
	"male":   domain.GenderMale,
	"man":    domain.GenderMale,
	"남":      domain.GenderMale,
	"남자":     domain.GenderMale,
	"남성":     domain.GenderMale,
	"f":      domain.GenderFemale,
	"female": domain.GenderFemale,
	"woman":  domain.GenderFemale,
	"여":      domain.GenderFemale,
	"여자":     domain.GenderFemale,
	"여성":     domain.GenderFemale,
}

// ParseProfile decodes a model payload and normalizes it into a profile.
// The payload must be a single JSON object, optionally wrapped in a
// Markdown code fence.
func ParseProfile(raw []byte) (*domain.Profile, error) {
	payload := unwrapCodeFence(raw)
	if len(payload) == 0 {
		return nil, errors.New("model response is empty")
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decoding model response: %w", err)
	}
	if fields == nil {
		return nil, errors.New("model response is not a JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("model response has trailing data")
	}

	return NormalizeProfile(fields), nil
}

// NormalizeProfile builds a profile from decoded model fields.
// Keys are matched case-insensitively; absent or unusable fields become
// null or empty, never an error.
func NormalizeProfile(fields map[string]any) *domain.Profile {
	lookup := make(map[string]any, len(fields))
	for k, v := range fields {
		lookup[strings.ToLower(strings.TrimSpace(k))] = v
	}

	profile := domain.NewProfile()
	profile.Name = normalizeName(lookup["name"])
	profile.Age = normalizeAge(lookup["age"])
	profile.Gender = normalizeGender(lookup["gender"])
	profile.Hobbies = normalizeHobbies(lookup["hobbies"])
	profile.Introduction = normalizeIntroduction(lookup["introduction"])

	return profile
}

func normalizeName(v any) *string {
	switch v.(type) {
	case string, json.Number, float64, bool:
		s, _ := stringify(v)
		return domain.StringPtr(s)
	default:
		return nil
	}
}

// normalizeAge renders decades and ranges as "<D>대" and exact ages as "<N>세".
func normalizeAge(v any) *string {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil
		}
		return exactAge(int(f))
	case float64:
		return exactAge(int(val))
	case string:
		return ageFromText(val)
	default:
		return nil
	}
}

func ageFromText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || negativeRegex.MatchString(s) {
		return nil
	}

	// A range wins over its trailing unit ("81-85세"), and an explicit
	// age wins over a decade ("72세 (70대)").
	if m := rangeRegex.FindStringSubmatch(s); m != nil {
		return decadeAge(m[1])
	}
	if m := exactRegex.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		return exactAge(n)
	}
	if m := decadeRegex.FindStringSubmatch(s); m != nil {
		return decadeAge(m[1])
	}

	numbers := numberRegex.FindAllString(s, -1)
	if len(numbers) != 1 {
		return nil
	}
	n, err := strconv.Atoi(numbers[0])
	if err != nil {
		return nil
	}
	return exactAge(n)
}

func decadeAge(digits string) *string {
	n, err := strconv.Atoi(digits)
	if err != nil || n < 10 || n > maxAge {
		return nil
	}
	age := fmt.Sprintf("%d대", n/10*10)
	return &age
}

func exactAge(n int) *string {
	if n <= 0 || n > maxAge {
		return nil
	}
	age := fmt.Sprintf("%d세", n)
	return &age
}

func normalizeGender(v any) domain.Gender {
	s, ok := stringify(v)
	if !ok {
		return domain.DefaultGender
	}
	if g, found := genderSpellings[strings.ToLower(strings.TrimSpace(s))]; found {
		return g
	}
	return domain.DefaultGender
}

// normalizeHobbies accepts a delimited string or a list and keeps at most
// domain.MaxHobbies non-blank entries.
func normalizeHobbies(v any) []string {
	var candidates []string

	switch val := v.(type) {
	case string:
		candidates = strings.FieldsFunc(val, func(r rune) bool {
			return r == ',' || r == '、' || r == '/'
		})
	case []any:
		for _, item := range val {
			if s, ok := stringify(item); ok {
				candidates = append(candidates, s)
			}
		}
	}

	hobbies := make([]string, 0, domain.MaxHobbies)
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		hobbies = append(hobbies, c)
		if len(hobbies) == domain.MaxHobbies {
			break
		}
	}
	return hobbies
}

func normalizeIntroduction(v any) *string {
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil
		}
		v = list[0]
	}
	s, ok := stringify(v)
	if !ok {
		return nil
	}
	return domain.StringPtr(s)
}

// stringify renders a decoded JSON value as text. Objects and lists are
// rendered as JSON. It reports false for null.
func stringify(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

// unwrapCodeFence strips a surrounding ``` fence, including an optional
// language tag, from a model payload.
func unwrapCodeFence(raw []byte) []byte {
	payload := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(payload, []byte("```")) {
		return payload
	}

	payload = payload[3:]
	if i := bytes.IndexByte(payload, '\n'); i >= 0 {
		payload = payload[i+1:]
	} else {
		payload = bytes.TrimPrefix(payload, []byte("json"))
	}
	payload = bytes.TrimSpace(payload)
	payload = bytes.TrimSuffix(payload, []byte("```"))

	return bytes.TrimSpace(payload)
}
