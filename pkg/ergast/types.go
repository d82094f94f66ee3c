// Package ergast models the Ergast-compatible statistics API and exposes the
// three queries the acquisition run needs: the season calendar, the
// classified results of an event and its pit stops.
package ergast

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned when a response does not have the expected shape.
var ErrMalformed = errors.New("malformed API response")

// Event identifies one race: (season, round).
type Event struct {
	Season int
	Round  int
}

// String implements fmt.Stringer.
func (e Event) String() string {
	return fmt.Sprintf("%d/%d", e.Season, e.Round)
}

// Response is the envelope of every API response.
type Response struct {
	MRData *MRData `json:"MRData"`
}

// MRData carries paging information and the race table.
type MRData struct {
	Limit     Count     `json:"limit"`
	Offset    Count     `json:"offset"`
	Total     Count     `json:"total"`
	RaceTable RaceTable `json:"RaceTable"`
}

// RaceTable holds the races matched by a query.
type RaceTable struct {
	Season string `json:"season,omitempty"`
	Round  string `json:"round,omitempty"`
	Races  []Race `json:"Races"`
}

// Race is one event together with whichever payload the endpoint returns.
type Race struct {
	Season   string    `json:"season"`
	Round    string    `json:"round"`
	RaceName string    `json:"raceName"`
	Date     string    `json:"date,omitempty"`
	Results  []Result  `json:"Results,omitempty"`
	PitStops []PitStop `json:"PitStops,omitempty"`
}

// Result is one classified driver of an event.
type Result struct {
	Number       string `json:"number"`
	Position     string `json:"position"`
	PositionText string `json:"positionText"`
	Points       string `json:"points"`
	Grid         string `json:"grid"`
	Laps         string `json:"laps"`
	Status       string `json:"status"`
	Driver       Driver `json:"Driver"`
}

// Driver identifies a driver across seasons.
type Driver struct {
	DriverID        string `json:"driverId"`
	PermanentNumber string `json:"permanentNumber,omitempty"`
	Code            string `json:"code,omitempty"`
	GivenName       string `json:"givenName,omitempty"`
	FamilyName      string `json:"familyName,omitempty"`
}

// PitStop is one raw pit-stop record.
type PitStop struct {
	DriverID string   `json:"driverId"`
	Lap      string   `json:"lap"`
	Stop     string   `json:"stop"`
	Time     string   `json:"time"`
	Duration RawValue `json:"duration"`
}

// Count is an integer the API sends as a JSON string ("123"). Numbers are
// accepted too; null, absent or unparseable values decode as 0.
type Count int

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	n, err := strconv.Atoi(raw)
	if err != nil {
		*c = 0
		return nil
	}
	*c = Count(n)
	return nil
}

// RawValue keeps a scalar field as its literal text. Strings are unquoted,
// numbers kept as written and null becomes "".
type RawValue string

// UnmarshalJSON implements json.Unmarshaler.
func (v *RawValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = RawValue(s)
	default:
		*v = RawValue(data)
	}
	return nil
}

// decode parses body and validates the envelope.
func decode(body []byte) (*MRData, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if resp.MRData == nil {
		return nil, fmt.Errorf("%w: missing MRData", ErrMalformed)
	}
	return resp.MRData, nil
}

// NumbersFromResults maps driverId to the car number used in the event. A
// missing number maps to "".
func NumbersFromResults(results []Result) map[string]string {
	numbers := make(map[string]string, len(results))
	for _, r := range results {
		if r.Driver.DriverID == "" {
			continue
		}
		numbers[r.Driver.DriverID] = r.Number
	}
	return numbers
}
