// internal/search/catalog/upstream.go
package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"medsearch-service/internal/models"
)

// PBS API v3 payloads. Field types on this API drift between schedules, so
// every scalar is decoded through optionalString.

type schedulesResponse struct {
	Results []struct {
		ScheduleCode optionalString `json:"schedule_code"`
	} `json:"results"`
}

type itemsResponse struct {
	Results []amtItem `json:"results"`
}

type amtItem struct {
	PBSCode          optionalString  `json:"pbs_code"`
	MedicineName     optionalString  `json:"medicine_name"`
	GenericName      optionalString  `json:"generic_name"`
	ActiveIngredient optionalString  `json:"active_ingredient"`
	Manufacturer     optionalString  `json:"manufacturer"`
	ATCCode          optionalString  `json:"atc_code"`
	FormAndStrength  optionalString  `json:"form_and_strength"`
	PrescriberType   optionalString  `json:"prescriber_type"`
	DDDAmount        optionalString  `json:"ddd_amount"`
	Restrictions     json.RawMessage `json:"restrictions"`
}

// optionalString distinguishes a missing or null field from a present one.
// Numbers and booleans are kept in their JSON text form; objects and arrays
// are treated as absent.
type optionalString struct {
	value string
	valid bool
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = optionalString{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = optionalString{value: s, valid: true}
	case '{', '[':
		*o = optionalString{}
	default:
		*o = optionalString{value: string(data), valid: true}
	}
	return nil
}

func (o optionalString) ptr() *string {
	if !o.valid {
		return nil
	}
	return models.StringPtr(o.value)
}

// decodeRestrictions accepts a list of strings, a list of objects carrying a
// text field, or a single string.
func decodeRestrictions(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single = strings.TrimSpace(single); single != "" {
			return []string{single}
		}
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s != "" {
				out = append(out, s)
			}
			continue
		}
		var obj map[string]interface{}
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		for _, key := range []string{"text", "restriction_text", "description", "code"} {
			if v, ok := obj[key]; ok {
				switch tv := v.(type) {
				case string:
					if tv != "" {
						out = append(out, tv)
					}
				case float64:
					out = append(out, strconv.FormatFloat(tv, 'f', -1, 64))
				}
				break
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// toRecord maps an upstream item. ok is false when the item has no usable name.
func (it amtItem) toRecord() (models.CatalogRecord, bool) {
	name := it.MedicineName.value
	if !it.MedicineName.valid || strings.TrimSpace(name) == "" {
		name = it.GenericName.value
	}
	if strings.TrimSpace(name) == "" {
		return models.CatalogRecord{}, false
	}

	return models.CatalogRecord{
		Code:               it.PBSCode.ptr(),
		Name:               name,
		ActiveIngredient:   it.ActiveIngredient.ptr(),
		Manufacturer:       it.Manufacturer.ptr(),
		ClassificationCode: it.ATCCode.ptr(),
		DDDAmount:          it.DDDAmount.ptr(),
		StrengthForm:       it.FormAndStrength.ptr(),
		Restrictions:       decodeRestrictions(it.Restrictions),
		PrescriberClass:    it.PrescriberType.ptr(),
	}, true
}

// matches reports whether the lowercased query occurs in either name.
func (it amtItem) matches(lowerQuery string) bool {
	return strings.Contains(strings.ToLower(it.MedicineName.value), lowerQuery) ||
		strings.Contains(strings.ToLower(it.GenericName.value), lowerQuery)
}
