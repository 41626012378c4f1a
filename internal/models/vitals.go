package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vitals is a six-field physiological snapshot.
type Vitals struct {
	HR            int           `json:"hr" yaml:"hr"`
	BP            BloodPressure `json:"bp" yaml:"bp"`
	RR            int           `json:"rr" yaml:"rr"`
	SpO2          int           `json:"spo2" yaml:"spo2"`
	Temp          float64       `json:"temp" yaml:"temp"`
	Consciousness string        `json:"consciousness" yaml:"consciousness"`
}

// WithDefaults returns v with every zero field taken from def.
func (v Vitals) WithDefaults(def Vitals) Vitals {
	if v.HR == 0 {
		v.HR = def.HR
	}
	if v.BP.Systolic == 0 || v.BP.Diastolic == 0 {
		v.BP = def.BP
	}
	if v.RR == 0 {
		v.RR = def.RR
	}
	if v.SpO2 == 0 {
		v.SpO2 = def.SpO2
	}
	if v.Temp == 0 {
		v.Temp = def.Temp
	}
	if strings.TrimSpace(v.Consciousness) == "" {
		v.Consciousness = def.Consciousness
	}
	return v
}

// IsZero reports whether no field is set.
func (v Vitals) IsZero() bool {
	return v == Vitals{}
}

// UnmarshalJSON accepts numbers encoded as JSON numbers or numeric strings.
// Values that cannot be read are left at zero.
func (v *Vitals) UnmarshalJSON(data []byte) error {
	var raw struct {
		HR            flexNumber    `json:"hr"`
		BP            BloodPressure `json:"bp"`
		RR            flexNumber    `json:"rr"`
		SpO2          flexNumber    `json:"spo2"`
		Temp          flexNumber    `json:"temp"`
		Consciousness string        `json:"consciousness"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = Vitals{
		HR:            raw.HR.Int(),
		BP:            raw.BP,
		RR:            raw.RR.Int(),
		SpO2:          raw.SpO2.Int(),
		Temp:          math.Round(float64(raw.Temp)*10) / 10,
		Consciousness: strings.TrimSpace(raw.Consciousness),
	}
	return nil
}

// BloodPressure is a systolic/diastolic pair, encoded as "120/70".
type BloodPressure struct {
	Systolic  int
	Diastolic int
}

func (bp BloodPressure) String() string {
	return fmt.Sprintf("%d/%d", bp.Systolic, bp.Diastolic)
}

// ParseBloodPressure reads "120/70", tolerating spaces and a trailing unit.
func ParseBloodPressure(s string) (BloodPressure, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "mmHg"))
	sys, dia, ok := strings.Cut(s, "/")
	if !ok {
		return BloodPressure{}, fmt.Errorf("blood pressure %q: missing '/'", s)
	}
	systolic, err := strconv.Atoi(strings.TrimSpace(sys))
	if err != nil {
		return BloodPressure{}, fmt.Errorf("blood pressure %q: systolic: %w", s, err)
	}
	diastolic, err := strconv.Atoi(strings.TrimSpace(dia))
	if err != nil {
		return BloodPressure{}, fmt.Errorf("blood pressure %q: diastolic: %w", s, err)
	}
	return BloodPressure{Systolic: systolic, Diastolic: diastolic}, nil
}

func (bp BloodPressure) MarshalJSON() ([]byte, error) {
	return json.Marshal(bp.String())
}

// UnmarshalJSON accepts "120/70" or {"systolic":120,"diastolic":70}.
// Unreadable input decodes to the zero value.
func (bp *BloodPressure) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*bp = BloodPressure{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseBloodPressure(s)
		if err != nil {
			*bp = BloodPressure{}
			return nil
		}
		*bp = parsed
	case '{':
		var obj struct {
			Systolic  flexNumber `json:"systolic"`
			Diastolic flexNumber `json:"diastolic"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*bp = BloodPressure{Systolic: obj.Systolic.Int(), Diastolic: obj.Diastolic.Int()}
	default:
		*bp = BloodPressure{}
	}
	return nil
}

func (bp BloodPressure) MarshalYAML() (any, error) {
	return bp.String(), nil
}

func (bp *BloodPressure) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseBloodPressure(node.Value)
	if err != nil {
		return err
	}
	*bp = parsed
	return nil
}

// flexNumber decodes a JSON number or a numeric string such as "98%" or "36,8".
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = flexNumber(parseLooseFloat(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*n = 0
		return nil
	}
	*n = flexNumber(f)
	return nil
}

func (n flexNumber) Int() int {
	return int(math.Round(float64(n)))
}

func parseLooseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			return r
		case r == ',':
			return '.'
		default:
			return -1
		}
	}, s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
